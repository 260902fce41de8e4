package processor

import (
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/sim"
)

// Builder can build processors.
type Builder struct {
	engine     sim.Engine
	id         int
	trace      TraceSource
	system     moesi.BusyReporter
	bufferSize int
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		bufferSize: 1,
	}
}

// WithEngine sets the engine that the processor uses.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithID sets the index of the processor in the trace.
func (b Builder) WithID(id int) Builder {
	b.id = id
	return b
}

// WithTrace sets the trace to replay.
func (b Builder) WithTrace(trace TraceSource) Builder {
	b.trace = trace
	return b
}

// WithSystem sets the component that tells when the memory system has
// settled.
func (b Builder) WithSystem(system moesi.BusyReporter) Builder {
	b.system = system
	return b
}

// WithBufferSize sets the capacity of the port.
func (b Builder) WithBufferSize(n int) Builder {
	b.bufferSize = n
	return b
}

// Build creates a processor.
func (b Builder) Build(name string) *Comp {
	if b.trace == nil {
		panic("processor " + name + " has no trace")
	}

	p := &Comp{
		id:     b.id,
		trace:  b.trace,
		system: b.system,
	}
	p.TickingComponent = sim.NewTickingComponent(name, b.engine, p)

	p.port = sim.NewPort(p, b.bufferSize, b.bufferSize, name+".Port")
	p.AddPort("Mem", p.port)

	return p
}
