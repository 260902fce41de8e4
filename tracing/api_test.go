package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/moesisim/sim"
)

var _ = Describe("API", func() {
	var (
		mockCtrl *gomock.Controller
		domain   *MockNamedHookable
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		domain = NewMockNamedHookable(mockCtrl)
		domain.EXPECT().Name().Return("Cache[0]").AnyTimes()
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should not invoke hooks if there is no hook", func() {
		domain.EXPECT().NumHooks().Return(0).Times(3)

		StartTask("1", "", domain, "req_in", "read", nil)
		AddTaskStep("1", domain, "hit")
		EndTask("1", domain)
	})

	It("should panic if the task kind is empty", func() {
		domain.EXPECT().NumHooks().Return(1)

		Expect(func() {
			StartTask("1", "", domain, "", "read", nil)
		}).To(Panic())
	})

	It("should start a task", func() {
		domain.EXPECT().NumHooks().Return(1)
		domain.EXPECT().InvokeHook(gomock.Any()).Do(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStart))

			task := ctx.Item.(Task)
			Expect(task.ID).To(Equal("1"))
			Expect(task.ParentID).To(Equal("0"))
			Expect(task.Kind).To(Equal("req_in"))
			Expect(task.What).To(Equal("read"))
			Expect(task.Location).To(Equal("Cache[0]"))
		})

		StartTask("1", "0", domain, "req_in", "read", nil)
	})

	It("should add a step", func() {
		domain.EXPECT().NumHooks().Return(1)
		domain.EXPECT().InvokeHook(gomock.Any()).Do(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskStep))
			Expect(ctx.Item.(Task).Steps[0].What).To(Equal("hit"))
		})

		AddTaskStep("1", domain, "hit")
	})

	It("should end a task", func() {
		domain.EXPECT().NumHooks().Return(1)
		domain.EXPECT().InvokeHook(gomock.Any()).Do(func(ctx sim.HookCtx) {
			Expect(ctx.Pos).To(BeIdenticalTo(HookPosTaskEnd))
			Expect(ctx.Item.(Task).ID).To(Equal("1"))
		})

		EndTask("1", domain)
	})
})

type recordingTracer struct {
	started, stepped, ended []Task
}

func (t *recordingTracer) StartTask(task Task) { t.started = append(t.started, task) }
func (t *recordingTracer) StepTask(task Task)  { t.stepped = append(t.stepped, task) }
func (t *recordingTracer) EndTask(task Task)   { t.ended = append(t.ended, task) }

type hookableDomain struct {
	sim.HookableBase
}

func (d *hookableDomain) Name() string { return "Bus" }

var _ = Describe("CollectTrace", func() {
	It("should route task events to the tracer", func() {
		domain := &hookableDomain{}
		tracer := &recordingTracer{}

		CollectTrace(domain, tracer)

		StartTask("t", "", domain, "bus_transaction", "Read", nil)
		AddTaskStep("t", domain, "snoop")
		EndTask("t", domain)

		Expect(tracer.started).To(HaveLen(1))
		Expect(tracer.started[0].Location).To(Equal("Bus"))
		Expect(tracer.stepped).To(HaveLen(1))
		Expect(tracer.ended).To(HaveLen(1))
	})

	It("should panic if the same tracer is attached twice", func() {
		domain := &hookableDomain{}
		tracer := &recordingTracer{}

		CollectTrace(domain, tracer)

		Expect(func() { CollectTrace(domain, tracer) }).To(Panic())
	})
})
