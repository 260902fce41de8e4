package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"

	"github.com/sarchlab/moesisim/sim"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type sampleStruct struct {
	field1 int
	field2 string
	field3 *sampleStruct
	field4 []sampleStruct
}

type sampleComponent struct {
	*sim.ComponentBase

	buffer sim.Buffer
}

func (c *sampleComponent) Handle(_ sim.Event) error {
	return nil
}

func (c *sampleComponent) NotifyRecv(_ sim.Port) {
	// Do nothing
}

func (c *sampleComponent) NotifyPortFree(_ sim.Port) {
	// Do nothing
}

func newSampleComponent() *sampleComponent {
	c := &sampleComponent{
		ComponentBase: sim.NewComponentBase("Comp"),
		buffer:        sim.NewBuffer("Comp.Buf", 10),
	}

	c.AddPort("Port1", sim.NewPort(c, 2, 2, "Comp.Port1"))

	return c
}

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
	)

	BeforeEach(func() {
		m = &Monitor{}
	})

	It("should register components and internal buffers", func() {
		c := newSampleComponent()
		m.RegisterComponent(c)

		Expect(m.components).To(HaveLen(1))
		Expect(m.buffers).To(HaveLen(3))
	})

	It("should list components", func() {
		m.RegisterComponent(newSampleComponent())

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/list_components", nil)
		m.router().ServeHTTP(rec, req)

		var names []string
		Expect(json.Unmarshal(rec.Body.Bytes(), &names)).To(Succeed())
		Expect(names).To(Equal([]string{"Comp"}))
	})

	It("should report the current cycle", func() {
		engine := sim.NewSerialEngine()
		m.RegisterEngine(engine)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/now", nil)
		m.router().ServeHTTP(rec, req)

		Expect(rec.Body.String()).To(Equal(`{"now":0}`))
	})

	It("should return 404 for unknown components", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/component/Nope", nil)
		m.router().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should sort buffers by level", func() {
		c := newSampleComponent()
		c.buffer.Push(1)
		c.buffer.Push(2)
		m.RegisterComponent(c)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/hangdetector/buffers?sort=level&limit=1", nil)
		m.router().ServeHTTP(rec, req)

		var bufs []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bufs)).To(Succeed())
		Expect(bufs).To(HaveLen(1))
		Expect(bufs[0]["buffer"]).To(Equal("Comp.Buf"))
		Expect(bufs[0]["level"]).To(BeNumerically("==", 2))
	})

	It("should reject unknown buffer sort methods", func() {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet,
			"/api/hangdetector/buffers?sort=name", nil)
		m.router().ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("CPU[0]", 10)
		bar.Issue()
		bar.Issue()
		bar.Complete(true)
		bar.Complete(false)

		finished, inProgress := bar.Counts()
		Expect(finished).To(Equal(uint64(2)))
		Expect(inProgress).To(Equal(uint64(1)))
		Expect(m.progressBars).To(HaveLen(1))

		m.CompleteProgressBar(bar)
		Expect(m.progressBars).To(BeEmpty())
	})

	It("should list progress bars", func() {
		bar := m.CreateProgressBar("CPU[1]", 4)
		bar.Issue()
		bar.Complete(true)
		bar.Issue()

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/api/progress", nil)
		m.router().ServeHTTP(rec, req)

		var bars []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("CPU[1]"))
		Expect(bars[0]["total"]).To(BeNumerically("==", 4))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 1))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))
	})

	It("should panic when completing an entry that was never issued", func() {
		bar := m.CreateProgressBar("CPU[0]", 1)

		Expect(func() { bar.Complete(true) }).To(Panic())
	})

	It("should walk int fields", func() {
		s := &sampleStruct{
			field1: 1,
		}

		elem, err := m.walkFields(s, "field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Type().Name()).To(Equal("int"))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{
			field2: "abc",
		}

		elem, err := m.walkFields(s, "field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.Type().Name()).To(Equal("string"))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{
			field3: &sampleStruct{},
		}

		elem, err := m.walkFields(s, "field3")

		Expect(err).To(BeNil())

		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk recursively", func() {
		s := &sampleStruct{
			field3: &sampleStruct{
				field1: 1,
			},
		}

		elem, err := m.walkFields(s, "field3.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Type().Name()).To(Equal("int"))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk slice", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{}, {}},
		}

		elem, err := m.walkFields(s, "field4")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Slice))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			field4: []sampleStruct{{
				field4: []sampleStruct{
					{field1: 1},
				},
			}, {}},
		}

		elem, err := m.walkFields(s, "field4.0.field4.0.field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Type().Name()).To(Equal("int"))
		Expect(elem.Int()).To(Equal(int64(1)))
	})
})
