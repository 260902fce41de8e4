// Package bus implements the shared bus that serializes the transactions of
// the caches, snoops the other caches, and forwards misses to memory.
package bus

import (
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
)

const noOwner = -2

// HookPosGrant marks the bus granting an agent. The item is the
// ArbitrationGrant.
var HookPosGrant = &sim.HookPos{Name: "Bus Grant"}

// HookPosSnoop marks a snoop of a cache. The item is a SnoopEvent.
var HookPosSnoop = &sim.HookPos{Name: "Bus Snoop"}

// SnoopEvent records the effect of one snoop.
type SnoopEvent struct {
	Kind      moesi.TransKind
	Requester int
	Target    int
	Address   uint64
	Result    moesi.SnoopResult
}

// Comp is the shared bus.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	port   sim.Port
	sender sim.BufferedSender

	caches []moesi.BusClient
	memory moesi.MemoryResponder

	arbitrationQueue sim.Buffer
	requestBuffer    sim.Buffer
	memoryRspBuffer  sim.Buffer

	memoryWaiting    bool
	memoryHoldsGrant bool
	owner            int
	current          *transaction

	parser        *parser
	arbiter       *arbiter
	requestStage  *requestStage
	responseStage *responseStage
}

// Port returns the port that all the caches and the memory connect to.
func (c *Comp) Port() sim.Port {
	return c.port
}

// AttachCache registers a cache. Caches must be attached in the order of
// their IDs, starting from 0.
func (c *Comp) AttachCache(cache moesi.BusClient) {
	if cache.CacheID() != len(c.caches) {
		log.Panicf("%s: cache %d attached at position %d",
			c.Name(), cache.CacheID(), len(c.caches))
	}

	c.caches = append(c.caches, cache)
}

// AttachMemory registers the memory.
func (c *Comp) AttachMemory(m moesi.MemoryResponder) {
	if c.memory != nil {
		log.Panicf("%s: memory already attached", c.Name())
	}

	c.memory = m
}

// NumCaches returns the number of attached caches.
func (c *Comp) NumCaches() int {
	return len(c.caches)
}

// Owner returns the cache that holds the bus, or -2 if no cache does.
func (c *Comp) Owner() int {
	return c.owner
}

// SystemBusy tells if the bus or the memory still has work to do.
func (c *Comp) SystemBusy() bool {
	if c.arbitrationQueue.Size() > 0 ||
		c.requestBuffer.Size() > 0 ||
		c.memoryRspBuffer.Size() > 0 ||
		c.sender.Size() > 0 ||
		c.port.PeekIncoming() != nil {
		return true
	}

	if c.memoryWaiting || c.memoryHoldsGrant ||
		c.owner != noOwner || c.current != nil {
		return true
	}

	return c.memory != nil && c.memory.SystemBusy()
}

func (c *Comp) cache(id int) moesi.BusClient {
	if id < 0 || id >= len(c.caches) {
		log.Panicf("%s: cache %d is not attached", c.Name(), id)
	}

	return c.caches[id]
}

func (c *Comp) memoryMustBeAttached() {
	if c.memory == nil {
		log.Panicf("%s: no memory attached", c.Name())
	}
}

func (c *Comp) isFromMemory(msg sim.Msg) bool {
	return c.memory != nil &&
		msg.Meta().Src == c.memory.BusSidePort().AsRemote()
}
