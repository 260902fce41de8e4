package memory

import (
	"github.com/google/btree"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/pipelining"
	"github.com/sarchlab/moesisim/sim"
)

// Builder can build memories.
type Builder struct {
	engine     sim.Engine
	latency    int
	width      int
	lineBytes  uint64
	bufferSize int
	stats      *moesi.Statistics
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		latency:    100,
		width:      4,
		lineBytes:  32,
		bufferSize: 16,
	}
}

// WithEngine sets the engine that the memory uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithLatency sets the number of cycles of an access.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithWidth sets the number of accesses that can start in the same cycle.
func (b Builder) WithWidth(n int) Builder {
	b.width = n
	return b
}

// WithLineBytes sets the size of the lines that reads return.
func (b Builder) WithLineBytes(n uint64) Builder {
	b.lineBytes = n
	return b
}

// WithBufferSize sets the capacity of the port and the internal buffers.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// WithStatistics sets the statistics object that the memory counts into.
func (b Builder) WithStatistics(stats *moesi.Statistics) Builder {
	b.stats = stats
	return b
}

// Build creates a memory.
func (b Builder) Build(name string) *Comp {
	if b.stats == nil {
		panic("memory " + name + " has no statistics object")
	}

	c := &Comp{
		lineBytes: b.lineBytes,
		stats:     b.stats,
		accessLog: btree.New(8),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	c.port = sim.NewPort(c, b.bufferSize, b.bufferSize, name+".BusPort")
	c.AddPort("Bus", c.port)

	c.sender = sim.NewBufferedSender(
		c.port,
		sim.NewBuffer(name+".SenderBuffer", b.bufferSize),
		c,
	)

	c.doneBuffer = sim.NewBuffer(name+".DoneBuffer", b.bufferSize)
	c.pipeline = pipelining.MakeBuilder().
		WithNumStage(b.latency).
		WithCyclePerStage(1).
		WithPipelineWidth(b.width).
		WithPostPipelineBuffer(c.doneBuffer).
		Build(name + ".Pipeline")

	c.parser = &parser{mem: c}
	c.arbitration = &arbitrationStage{mem: c}
	c.respondStage = &respondStage{mem: c}

	c.AddMiddleware(c.sender)
	c.AddMiddleware(c.respondStage)
	c.AddMiddleware(c.arbitration)
	c.AddMiddleware(c.pipeline)
	c.AddMiddleware(c.parser)

	return c
}
