// Package memory implements the main memory behind the shared bus. Every
// access takes a fixed number of cycles. The memory then asks for the bus and
// sends its completion once granted.
package memory

import (
	"log"

	"github.com/google/btree"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/pipelining"
	"github.com/sarchlab/moesisim/sim"
)

// HookPosAccessDone marks the completion of a memory access. The item is the
// completion BusMsg.
var HookPosAccessDone = &sim.HookPos{Name: "Memory Access Done"}

// Comp is the main memory.
type Comp struct {
	*sim.TickingComponent
	sim.MiddlewareHolder

	port   sim.Port
	sender sim.BufferedSender
	bus    sim.RemotePort

	lineBytes uint64
	stats     *moesi.Statistics

	pipeline   pipelining.Pipeline
	doneBuffer sim.Buffer

	pending *access
	granted bool

	accessLog *btree.BTree

	parser       *parser
	arbitration  *arbitrationStage
	respondStage *respondStage
}

// BusSidePort returns the port that faces the bus.
func (c *Comp) BusSidePort() sim.Port {
	return c.port
}

// SetBus sets the port that the memory sends its messages to.
func (c *Comp) SetBus(bus sim.RemotePort) {
	c.bus = bus
}

// SystemBusy tells if the memory still has accesses to complete.
func (c *Comp) SystemBusy() bool {
	return c.pending != nil ||
		c.pipeline.NumInFlight() > 0 ||
		c.doneBuffer.Size() > 0 ||
		c.sender.Size() > 0 ||
		c.port.PeekIncoming() != nil
}

func (c *Comp) busMustBeSet() {
	if c.bus == "" {
		log.Panicf("%s: bus is not set", c.Name())
	}
}
