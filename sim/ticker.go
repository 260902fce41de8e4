package sim

import (
	"sync"
)

// TickEvent is a generic event that almost all the component can use to
// update their status.
type TickEvent struct {
	EventBase
}

// MakeTickEvent creates a new TickEvent
func MakeTickEvent(handler Handler, time VTimeInCycle) TickEvent {
	evt := TickEvent{}
	evt.ID = GetIDGenerator().Generate()
	evt.handler = handler
	evt.time = time
	evt.secondary = false

	return evt
}

// A Ticker is an object that updates states with ticks.
type Ticker interface {
	Tick() bool
}

// TickScheduler can help schedule tick events. It guarantees that a handler
// never has two tick events scheduled for the same cycle.
type TickScheduler struct {
	lock      sync.Mutex
	handler   Handler
	Engine    Engine
	secondary bool

	scheduled    bool
	nextTickTime VTimeInCycle
}

// NewTickScheduler creates a scheduler for tick events.
func NewTickScheduler(handler Handler, engine Engine) *TickScheduler {
	ticker := new(TickScheduler)

	ticker.handler = handler
	ticker.Engine = engine

	return ticker
}

// NewSecondaryTickScheduler creates a scheduler that always schedule secondary
// tick events.
func NewSecondaryTickScheduler(handler Handler, engine Engine) *TickScheduler {
	ticker := NewTickScheduler(handler, engine)
	ticker.secondary = true

	return ticker
}

// TickNow schedule a Tick event at the current cycle.
func (t *TickScheduler) TickNow() {
	t.schedule(t.CurrentTime())
}

// TickLater will schedule a tick event at the cycle after the current cycle.
func (t *TickScheduler) TickLater() {
	t.schedule(t.CurrentTime() + 1)
}

func (t *TickScheduler) schedule(time VTimeInCycle) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.scheduled && t.nextTickTime >= time {
		return
	}

	t.scheduled = true
	t.nextTickTime = time

	tick := MakeTickEvent(t.handler, time)
	tick.secondary = t.secondary

	t.Engine.Schedule(tick)
}

// CurrentTime returns the current cycle of the engine.
func (t *TickScheduler) CurrentTime() VTimeInCycle {
	return t.Engine.CurrentTime()
}

// TickingComponent is a type of component that update states from cycle to
// cycle. A programmer would only need to program a tick function for a ticking
// component.
type TickingComponent struct {
	*ComponentBase
	*TickScheduler

	ticker Ticker
}

// NotifyPortFree triggers the TickingComponent to start ticking again.
func (c *TickingComponent) NotifyPortFree(_ Port) {
	c.TickLater()
}

// NotifyRecv triggers the TickingComponent to start ticking again.
func (c *TickingComponent) NotifyRecv(_ Port) {
	c.TickLater()
}

// Handle triggers the tick function of the TickingComponent
func (c *TickingComponent) Handle(_ Event) error {
	madeProgress := c.ticker.Tick()
	if madeProgress {
		c.TickLater()
	}

	return nil
}

// NewTickingComponent creates a new ticking component
func NewTickingComponent(
	name string,
	engine Engine,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.TickScheduler = NewTickScheduler(tc, engine)
	tc.ComponentBase = NewComponentBase(name)
	tc.ticker = ticker

	return tc
}

// NewSecondaryTickingComponent creates a new ticking component whose tick
// events are handled after the primary events of the same cycle.
func NewSecondaryTickingComponent(
	name string,
	engine Engine,
	ticker Ticker,
) *TickingComponent {
	tc := new(TickingComponent)
	tc.TickScheduler = NewSecondaryTickScheduler(tc, engine)
	tc.ComponentBase = NewComponentBase(name)
	tc.ticker = ticker

	return tc
}
