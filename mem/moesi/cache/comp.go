// Package cache implements a private MOESI cache that sits between a
// processor and the shared bus.
package cache

import (
	"fmt"
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/internal/tagging"
	"github.com/sarchlab/moesisim/pipelining"
	"github.com/sarchlab/moesisim/sim"
)

// Hook positions of the cache. The hook item is a LineEvent.
var (
	HookPosLineEvicted     = &sim.HookPos{Name: "Cache Line Evicted"}
	HookPosLineInstalled   = &sim.HookPos{Name: "Cache Line Installed"}
	HookPosLineUpgraded    = &sim.HookPos{Name: "Cache Line Upgraded"}
	HookPosWriteBackIssued = &sim.HookPos{Name: "Cache Write Back Issued"}
	HookPosSnooped         = &sim.HookPos{Name: "Cache Line Snooped"}
)

// LineEvent describes a change to one cache line.
type LineEvent struct {
	Cache   int
	Address uint64
	SetID   int
	WayID   int
	Before  moesi.State
	After   moesi.State
}

// Comp is a MOESI cache.
type Comp struct {
	*sim.TickingComponent

	topPort sim.Port
	busPort sim.Port
	bus     sim.RemotePort

	id        int
	geometry  moesi.Geometry
	directory *tagging.Directory
	protocol  *moesi.Table
	stats     *moesi.Statistics

	lookupPipeline pipelining.Pipeline
	lookupBuffer   sim.Buffer
	topSender      sim.BufferedSender
	busSender      sim.BufferedSender

	topParser   *topParser
	lookupStage *lookupStage
	busStage    *busStage

	inFlight *transaction
}

// CacheID returns the ID that the cache uses on the bus.
func (c *Comp) CacheID() int {
	return c.id
}

// TopPort returns the port that faces the processor.
func (c *Comp) TopPort() sim.Port {
	return c.topPort
}

// BusSidePort returns the port that faces the bus.
func (c *Comp) BusSidePort() sim.Port {
	return c.busPort
}

// SetBus sets the port that the cache sends bus messages to.
func (c *Comp) SetBus(bus sim.RemotePort) {
	c.bus = bus
}

// Geometry returns the shape of the cache.
func (c *Comp) Geometry() moesi.Geometry {
	return c.geometry
}

// LineState returns the state of the line that holds the address. It returns
// Invalid if no valid line holds it.
func (c *Comp) LineState(addr uint64) moesi.State {
	line, found := c.directory.Lookup(c.geometry.Decode(addr))
	if !found {
		return moesi.Invalid
	}

	return line.State
}

// ForEachValidLine calls fn with the address and state of every valid line.
func (c *Comp) ForEachValidLine(fn func(addr uint64, state moesi.State)) {
	for i := 0; i < c.directory.NumSets(); i++ {
		for _, l := range c.directory.Set(uint64(i)).Lines {
			if l.State.IsValid() {
				fn(c.directory.LineAddress(l), l.State)
			}
		}
	}
}

// CheckConsistency returns an error if any set of the cache is broken.
func (c *Comp) CheckConsistency() error {
	if err := c.directory.CheckConsistency(); err != nil {
		return fmt.Errorf("%s: %w", c.Name(), err)
	}

	return nil
}

// SystemBusy tells if the cache has any request that is not completed.
func (c *Comp) SystemBusy() bool {
	return c.inFlight != nil ||
		c.lookupBuffer.Size() > 0 ||
		c.lookupPipeline.NumInFlight() > 0 ||
		c.topSender.Size() > 0 ||
		c.busSender.Size() > 0 ||
		c.topPort.PeekIncoming() != nil
}

// Tick updates the state of the cache.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.topSender.Tick() || madeProgress
	madeProgress = c.busSender.Tick() || madeProgress
	madeProgress = c.busStage.Tick() || madeProgress
	madeProgress = c.lookupStage.Tick() || madeProgress
	madeProgress = c.lookupPipeline.Tick() || madeProgress
	madeProgress = c.topParser.Tick() || madeProgress

	return madeProgress
}

func (c *Comp) invokeLineHook(
	pos *sim.HookPos,
	line *tagging.Line,
	before moesi.State,
) {
	if c.NumHooks() == 0 {
		return
	}

	c.InvokeHook(sim.HookCtx{
		Domain: c,
		Now:    c.CurrentTime(),
		Pos:    pos,
		Item: LineEvent{
			Cache:   c.id,
			Address: c.directory.LineAddress(line),
			SetID:   line.SetID,
			WayID:   line.WayID,
			Before:  before,
			After:   line.State,
		},
	})
}

func (c *Comp) requesterMustBeOther(requester int) {
	if requester == c.id {
		log.Panicf("%s: snooped by its own transaction", c.Name())
	}
}
