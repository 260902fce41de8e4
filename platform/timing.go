package platform

import (
	"github.com/sarchlab/moesisim/tracing"
)

// CPUTiming summarizes how long the accesses of one processor took, from the
// cycle the request is sent to the cycle the response is taken.
type CPUTiming struct {
	Accesses       uint64
	AverageLatency float64
	MaxLatency     uint64
}

// Timing summarizes the latencies of a run.
type Timing struct {
	CPUs []CPUTiming

	// BusBusyCycles counts the cycles in which the bus was serving a
	// transaction.
	BusBusyCycles uint64

	// MemoryBusyCycles counts the cycles in which at least one access was in
	// the memory.
	MemoryBusyCycles uint64
}

type timingTracers struct {
	cpus   []*tracing.AverageTimeTracer
	bus    *tracing.BusyTimeTracer
	memory *tracing.BusyTimeTracer
}

func kindIs(kind string) tracing.TaskFilter {
	return func(t tracing.Task) bool {
		return t.Kind == kind
	}
}

func (p *Platform) attachTimingTracers() {
	for _, proc := range p.processors {
		t := tracing.NewAverageTimeTracer(p.engine, kindIs("req_out"))
		tracing.CollectTrace(proc, t)
		p.tracers.cpus = append(p.tracers.cpus, t)
	}

	p.tracers.bus = tracing.NewBusyTimeTracer(p.engine, kindIs("req_in"))
	tracing.CollectTrace(p.bus, p.tracers.bus)

	p.tracers.memory = tracing.NewBusyTimeTracer(p.engine, kindIs("req_in"))
	tracing.CollectTrace(p.memory, p.tracers.memory)
}

// Timing returns the latencies measured so far.
func (p *Platform) Timing() Timing {
	t := Timing{
		BusBusyCycles:    uint64(p.tracers.bus.BusyTime()),
		MemoryBusyCycles: uint64(p.tracers.memory.BusyTime()),
	}

	for _, cpu := range p.tracers.cpus {
		t.CPUs = append(t.CPUs, CPUTiming{
			Accesses:       cpu.TotalCount(),
			AverageLatency: cpu.AverageTime(),
			MaxLatency:     uint64(cpu.MaxTime()),
		})
	}

	return t
}
