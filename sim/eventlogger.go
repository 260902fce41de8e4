package sim

import (
	"log"
	"reflect"
)

// A LogHook is a hook that is resonsible for recording information from the
// simulation
type LogHook interface {
	Hook
}

// LogHookBase provides the common logic for all LogHooks
type LogHookBase struct {
	*log.Logger
}

// EventLogger is an hook that prints the event information
type EventLogger struct {
	LogHookBase
}

// NewEventLogger returns a new EventLogger which will write in to the logger
func NewEventLogger(logger *log.Logger) *EventLogger {
	h := new(EventLogger)
	h.Logger = logger

	return h
}

// Func writes the event information into the logger
func (h *EventLogger) Func(ctx HookCtx) {
	if ctx.Pos != HookPosBeforeEvent {
		return
	}

	evt, ok := ctx.Item.(Event)
	if !ok {
		return
	}

	comp, ok := evt.Handler().(Named)
	if ok {
		h.Logger.Printf("%d, %s -> %s",
			evt.Time(), reflect.TypeOf(evt), comp.Name())
	} else {
		h.Logger.Printf("%d, %s", evt.Time(), reflect.TypeOf(evt))
	}
}
