package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/moesisim/sim"
)

// A Tracer can collect task traces
type Tracer interface {
	StartTask(task Task)
	StepTask(task Task)
	EndTask(task Task)
}

// CollectTrace let the tracer to collect trace from a domain
func CollectTrace(domain NamedHookable, tracer Tracer) {
	for _, hook := range domain.Hooks() {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain %s already has tracer %s",
				domain.Name(), reflect.TypeOf(tracer)))
		}
	}

	domain.AcceptHook(&traceHook{t: tracer})
}

// A traceHook is a hook that traces tasks
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case HookPosTaskStart:
		h.t.StartTask(ctx.Item.(Task))
	case HookPosTaskStep:
		h.t.StepTask(ctx.Item.(Task))
	case HookPosTaskEnd:
		h.t.EndTask(ctx.Item.(Task))
	}
}
