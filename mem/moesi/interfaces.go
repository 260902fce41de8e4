package moesi

import "github.com/sarchlab/moesisim/sim"

// SnoopResult reports what a snoop did to one cache.
type SnoopResult struct {
	// Hit is true if the cache held a valid copy of the line.
	Hit bool

	// Supplied is true if the cache provided the data.
	Supplied bool

	// WasDirty is true if the copy was M or O before the snoop.
	WasDirty bool

	Data   []byte
	Before State
	After  State
}

// A SnoopTarget reacts to the snoops that the bus broadcasts while it resolves
// another cache's transaction.
type SnoopTarget interface {
	SnoopRead(requester int, addr uint64, alreadySatisfied bool) SnoopResult
	SnoopInvalidate(requester int, addr uint64) SnoopResult
}

// A BusClient is a cache as seen by the bus.
type BusClient interface {
	SnoopTarget

	CacheID() int
	BusSidePort() sim.Port
}

// A MemoryResponder is the memory as seen by the bus.
type MemoryResponder interface {
	BusSidePort() sim.Port
	SystemBusy() bool
}

// A BusyReporter tells if there is any unfinished work behind it.
type BusyReporter interface {
	SystemBusy() bool
}
