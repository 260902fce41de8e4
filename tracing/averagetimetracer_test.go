package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/moesisim/sim"
)

var _ = Describe("AverageTimeTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		t          *AverageTimeTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)

		t = NewAverageTimeTracer(timeTeller, FilterByKind("req_in"))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should return 0 if no task is completed", func() {
		Expect(t.AverageTime()).To(Equal(0.0))
	})

	It("should calculate the average time", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(1))
		t.StartTask(Task{ID: "1", Kind: "req_in"})
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(2))
		t.StartTask(Task{ID: "2", Kind: "req_in"})
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(3))
		t.EndTask(Task{ID: "1"})
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(8))
		t.EndTask(Task{ID: "2"})

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.TotalTime()).To(Equal(sim.VTimeInCycle(8)))
		Expect(t.MaxTime()).To(Equal(sim.VTimeInCycle(6)))
		Expect(t.AverageTime()).To(Equal(4.0))
	})

	It("should ignore tasks of other kinds", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInCycle(1)).Times(2)
		t.StartTask(Task{ID: "1", Kind: "req_out"})
		t.EndTask(Task{ID: "1"})

		Expect(t.TotalCount()).To(Equal(uint64(0)))
	})
})
