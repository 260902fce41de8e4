package bus

import (
	"github.com/sarchlab/moesisim/sim"
)

// Builder can build buses.
type Builder struct {
	engine     sim.Engine
	bufferSize int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		bufferSize: 16,
	}
}

// WithEngine sets the engine that the bus uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithBufferSize sets the capacity of the port and the internal queues. It
// must be larger than the number of caches.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// Build creates a bus.
func (b Builder) Build(name string) *Comp {
	c := &Comp{
		owner: noOwner,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, c)

	c.port = sim.NewPort(c, b.bufferSize, b.bufferSize, name+".Port")
	c.AddPort("Bus", c.port)

	c.sender = sim.NewBufferedSender(
		c.port,
		sim.NewBuffer(name+".SenderBuffer", b.bufferSize),
		c,
	)

	c.arbitrationQueue = sim.NewBuffer(name+".ArbitrationQueue", b.bufferSize)
	c.requestBuffer = sim.NewBuffer(name+".RequestBuffer", b.bufferSize)
	c.memoryRspBuffer = sim.NewBuffer(name+".MemoryRspBuffer", b.bufferSize)

	c.parser = &parser{bus: c}
	c.arbiter = &arbiter{bus: c}
	c.requestStage = &requestStage{bus: c}
	c.responseStage = &responseStage{bus: c}

	c.AddMiddleware(c.sender)
	c.AddMiddleware(c.responseStage)
	c.AddMiddleware(c.requestStage)
	c.AddMiddleware(c.arbiter)
	c.AddMiddleware(c.parser)

	return c
}
