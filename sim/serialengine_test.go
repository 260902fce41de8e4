package sim

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type recordingHandler struct {
	name    string
	log     *[]string
	onEvent func(e Event)
}

func (h *recordingHandler) Handle(e Event) error {
	*h.log = append(*h.log, h.name)
	if h.onEvent != nil {
		h.onEvent(e)
	}

	return nil
}

type testEvent struct {
	*EventBase
}

func newTestEvent(t VTimeInCycle, h Handler, secondary bool) testEvent {
	evt := testEvent{NewEventBase(t, h)}
	evt.secondary = secondary

	return evt
}

var _ = Describe("SerialEngine", func() {
	var (
		engine *SerialEngine
		record []string
	)

	BeforeEach(func() {
		engine = NewSerialEngine()
		record = nil
	})

	It("should handle events in time order", func() {
		h1 := &recordingHandler{name: "h1", log: &record}
		h2 := &recordingHandler{name: "h2", log: &record}
		h3 := &recordingHandler{name: "h3", log: &record}

		h2.onEvent = func(_ Event) {
			engine.Schedule(newTestEvent(3, h3, false))
		}

		engine.Schedule(newTestEvent(4, h1, false))
		engine.Schedule(newTestEvent(2, h2, false))

		Expect(engine.Run()).To(Succeed())
		Expect(record).To(Equal([]string{"h2", "h3", "h1"}))
		Expect(engine.CurrentTime()).To(Equal(VTimeInCycle(4)))
	})

	It("should handle same-cycle events in schedule order", func() {
		for _, n := range []string{"a", "b", "c", "d"} {
			h := &recordingHandler{name: n, log: &record}
			engine.Schedule(newTestEvent(7, h, false))
		}

		Expect(engine.Run()).To(Succeed())
		Expect(record).To(Equal([]string{"a", "b", "c", "d"}))
	})

	It("should handle secondary events after primary events", func() {
		h1 := &recordingHandler{name: "secondary", log: &record}
		h2 := &recordingHandler{name: "primary", log: &record}
		h3 := &recordingHandler{name: "next", log: &record}

		engine.Schedule(newTestEvent(2, h1, true))
		engine.Schedule(newTestEvent(2, h2, false))
		engine.Schedule(newTestEvent(3, h3, false))

		Expect(engine.Run()).To(Succeed())
		Expect(record).To(Equal([]string{"primary", "secondary", "next"}))
	})

	It("should panic when scheduling into the past", func() {
		h := &recordingHandler{name: "h", log: &record}
		h.onEvent = func(_ Event) {
			engine.Schedule(newTestEvent(1, h, false))
		}

		engine.Schedule(newTestEvent(5, h, false))

		Expect(func() { _ = engine.Run() }).To(Panic())
	})

	It("should stop at the cycle limit", func() {
		h := &recordingHandler{name: "h", log: &record}
		h.onEvent = func(e Event) {
			engine.Schedule(newTestEvent(e.Time()+1, h, false))
		}

		engine.SetCycleLimit(10)
		engine.Schedule(newTestEvent(0, h, false))

		err := engine.Run()

		Expect(errors.Is(err, ErrCycleLimitReached)).To(BeTrue())
		Expect(record).To(HaveLen(11))
	})

	It("should invoke hooks around events", func() {
		var positions []*HookPos
		engine.AcceptHook(HookFunc(func(ctx HookCtx) {
			positions = append(positions, ctx.Pos)
		}))

		engine.Schedule(newTestEvent(1, &recordingHandler{name: "h", log: &record}, false))
		Expect(engine.Run()).To(Succeed())

		Expect(positions).To(Equal([]*HookPos{
			HookPosBeforeEvent, HookPosAfterEvent,
		}))
	})

	It("should call simulation end handlers", func() {
		var endedAt VTimeInCycle
		engine.RegisterSimulationEndHandler(endHandlerFunc(func(now VTimeInCycle) {
			endedAt = now
		}))

		engine.Schedule(newTestEvent(9, &recordingHandler{name: "h", log: &record}, false))
		Expect(engine.Run()).To(Succeed())
		engine.Finished()

		Expect(endedAt).To(Equal(VTimeInCycle(9)))
	})
})

type endHandlerFunc func(now VTimeInCycle)

func (f endHandlerFunc) Handle(now VTimeInCycle) {
	f(now)
}
