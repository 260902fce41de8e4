package sim

import "errors"

// ErrCycleLimitReached is returned by Run when the engine stops because the
// next event is scheduled after the configured cycle limit. It usually means
// that the simulated system hangs.
var ErrCycleLimitReached = errors.New("cycle limit reached")

// TimeTeller can be used to get the current time.
type TimeTeller interface {
	CurrentTime() VTimeInCycle
}

// EventScheduler can be used to schedule future events.
type EventScheduler interface {
	Schedule(e Event)
}

// A SimulationEndHandler is a handler that is called after the simulation ends.
type SimulationEndHandler interface {
	Handle(now VTimeInCycle)
}

// An Engine keeps the simulation running, one cycle after another.
type Engine interface {
	Hookable
	TimeTeller
	EventScheduler

	// Run processes events until no event is left. It returns
	// ErrCycleLimitReached if a limit is set and the simulation has not
	// drained by then.
	Run() error

	// Pause blocks the engine from handling more events.
	Pause()

	// Continue resumes a paused engine.
	Continue()

	RegisterSimulationEndHandler(handler SimulationEndHandler)

	// Finished invokes all the registered SimulationEndHandler
	Finished()
}
