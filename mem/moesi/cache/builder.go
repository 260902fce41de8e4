package cache

import (
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/internal/tagging"
	"github.com/sarchlab/moesisim/pipelining"
	"github.com/sarchlab/moesisim/sim"
)

// Builder can build MOESI caches.
type Builder struct {
	engine        sim.Engine
	id            int
	lineBytes     uint64
	numSets       uint64
	associativity int
	latency       int
	bufferSize    int
	stats         *moesi.Statistics
	protocol      *moesi.Table
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		lineBytes:     32,
		numSets:       128,
		associativity: 8,
		latency:       1,
		bufferSize:    4,
	}
}

// WithEngine sets the engine that the cache uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithID sets the ID of the cache on the bus. It is also the index of the
// processor that the cache serves.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithLineBytes sets the size of a cache line.
func (b Builder) WithLineBytes(n uint64) Builder {
	b.lineBytes = n
	return b
}

// WithNumSets sets the number of sets.
func (b Builder) WithNumSets(n uint64) Builder {
	b.numSets = n
	return b
}

// WithAssociativity sets the number of ways of each set.
func (b Builder) WithAssociativity(n int) Builder {
	b.associativity = n
	return b
}

// WithLatency sets the number of cycles of a lookup.
func (b Builder) WithLatency(cycles int) Builder {
	b.latency = cycles
	return b
}

// WithBufferSize sets the capacity of the port and sender buffers.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// WithStatistics sets the statistics object that the cache counts into.
func (b Builder) WithStatistics(stats *moesi.Statistics) Builder {
	b.stats = stats
	return b
}

// WithProtocol sets the transition table. The MOESI table is used if not set.
func (b Builder) WithProtocol(t *moesi.Table) Builder {
	b.protocol = t
	return b
}

// Build creates a cache.
func (b Builder) Build(name string) *Comp {
	geometry, err := moesi.NewGeometry(b.lineBytes, b.numSets, b.associativity)
	if err != nil {
		panic(err)
	}

	if b.stats == nil {
		panic("cache " + name + " has no statistics object")
	}

	c := &Comp{
		id:        b.id,
		geometry:  geometry,
		directory: tagging.NewDirectory(geometry),
		protocol:  b.protocol,
		stats:     b.stats,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	if c.protocol == nil {
		c.protocol = moesi.MustNewMOESITable()
	}

	b.createPorts(c, name)
	b.createStages(c, name)

	return c
}

func (b Builder) createPorts(c *Comp, name string) {
	c.topPort = sim.NewPort(c, b.bufferSize, b.bufferSize, name+".TopPort")
	c.AddPort("Top", c.topPort)

	c.busPort = sim.NewPort(c, b.bufferSize, b.bufferSize, name+".BusPort")
	c.AddPort("Bus", c.busPort)

	c.topSender = sim.NewBufferedSender(
		c.topPort,
		sim.NewBuffer(name+".TopSenderBuffer", b.bufferSize),
		c,
	)
	c.busSender = sim.NewBufferedSender(
		c.busPort,
		sim.NewBuffer(name+".BusSenderBuffer", b.bufferSize),
		c,
	)
}

func (b Builder) createStages(c *Comp, name string) {
	c.lookupBuffer = sim.NewBuffer(name+".LookupBuffer", b.bufferSize)
	c.lookupPipeline = pipelining.MakeBuilder().
		WithNumStage(b.latency).
		WithCyclePerStage(1).
		WithPipelineWidth(1).
		WithPostPipelineBuffer(c.lookupBuffer).
		Build(name + ".LookupPipeline")

	c.topParser = &topParser{cache: c}
	c.lookupStage = &lookupStage{cache: c}
	c.busStage = &busStage{cache: c}
}
