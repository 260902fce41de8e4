package platform

import (
	"fmt"
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/bus"
	"github.com/sarchlab/moesisim/mem/moesi/cache"
	"github.com/sarchlab/moesisim/mem/moesi/memory"
	"github.com/sarchlab/moesisim/processor"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/simulation"
)

// Builder can build platforms.
type Builder struct {
	simulation *simulation.Simulation
	config     Config
	trace      processor.TraceSource
	logger     *log.Logger
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{
		config: DefaultConfig(),
	}
}

// WithSimulation sets the simulation that owns the engine. A simulation
// without monitoring and recording is created if not set.
func (b Builder) WithSimulation(s *simulation.Simulation) Builder {
	b.simulation = s
	return b
}

// WithConfig sets the configuration of the system.
func (b Builder) WithConfig(c Config) Builder {
	b.config = c
	return b
}

// WithTrace sets the trace that the processors replay.
func (b Builder) WithTrace(t processor.TraceSource) Builder {
	b.trace = t
	return b
}

// WithLogger logs every event and every port message into the logger.
func (b Builder) WithLogger(l *log.Logger) Builder {
	b.logger = l
	return b
}

// Build creates a platform. The processor count grows to cover every
// processor named by the trace.
func (b Builder) Build(name string) (*Platform, error) {
	if b.trace == nil {
		return nil, fmt.Errorf("platform %s has no trace", name)
	}

	cfg := b.config
	if counter, ok := b.trace.(interface{ NumCPUs() int }); ok {
		cfg.NumCPUs = max(cfg.NumCPUs, counter.NumCPUs())
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	s := b.simulation
	if s == nil {
		s = simulation.MakeBuilder().WithCycleLimit(cfg.CycleLimit).Build()
	}

	p := &Platform{
		config:     cfg,
		simulation: s,
		engine:     s.GetEngine(),
		stats:      moesi.NewStatistics(cfg.NumCPUs),
	}

	b.buildBusAndMemory(p, name)
	b.buildCaches(p, name)
	b.buildProcessors(p, name)
	b.connect(p, name)
	b.register(p)
	p.attachTimingTracers()

	if b.logger != nil {
		b.attachLoggers(p)
	}

	return p, nil
}

func (b Builder) buildBusAndMemory(p *Platform, name string) {
	cfg := p.config

	p.bus = bus.MakeBuilder().
		WithEngine(p.engine).
		WithBufferSize(cfg.busBufferSize()).
		Build(name + ".Bus")

	p.memory = memory.MakeBuilder().
		WithEngine(p.engine).
		WithLatency(cfg.MemoryLatency).
		WithLineBytes(cfg.LineBytes).
		WithBufferSize(cfg.MemoryBufferSize).
		WithStatistics(p.stats).
		Build(name + ".Memory")
	p.memory.SetBus(p.bus.Port().AsRemote())

	p.bus.AttachMemory(p.memory)
}

func (b Builder) buildCaches(p *Platform, name string) {
	cfg := p.config

	for i := 0; i < cfg.NumCPUs; i++ {
		c := cache.MakeBuilder().
			WithEngine(p.engine).
			WithID(i).
			WithLineBytes(cfg.LineBytes).
			WithNumSets(cfg.NumSets).
			WithAssociativity(cfg.Associativity).
			WithLatency(cfg.CacheLatency).
			WithBufferSize(cfg.CacheBufferSize).
			WithStatistics(p.stats).
			Build(fmt.Sprintf("%s.Cache[%d]", name, i))
		c.SetBus(p.bus.Port().AsRemote())

		p.bus.AttachCache(c)
		p.caches = append(p.caches, c)
	}
}

func (b Builder) buildProcessors(p *Platform, name string) {
	monitor := p.simulation.GetMonitor()
	counter, countable := b.trace.(processor.EntryCounter)

	for i := 0; i < p.config.NumCPUs; i++ {
		proc := processor.MakeBuilder().
			WithEngine(p.engine).
			WithID(i).
			WithTrace(b.trace).
			WithSystem(p.bus).
			Build(fmt.Sprintf("%s.CPU[%d]", name, i))
		proc.SetCache(p.caches[i].TopPort().AsRemote())

		if monitor != nil && countable {
			bar := monitor.CreateProgressBar(
				fmt.Sprintf("CPU %d", i),
				uint64(counter.NumEntries(i)),
			)
			proc.SetProgressBar(bar)
			p.progressBars = append(p.progressBars, bar)
		}

		p.processors = append(p.processors, proc)
	}
}

func (b Builder) connect(p *Platform, name string) {
	top := sim.NewDirectConnection(name+".TopConn", p.engine)
	for i, proc := range p.processors {
		top.PlugIn(proc.Port())
		top.PlugIn(p.caches[i].TopPort())
	}

	busConn := sim.NewDirectConnection(name+".BusConn", p.engine)
	busConn.PlugIn(p.bus.Port())
	busConn.PlugIn(p.memory.BusSidePort())

	for _, c := range p.caches {
		busConn.PlugIn(c.BusSidePort())
	}
}

func (b Builder) register(p *Platform) {
	for _, proc := range p.processors {
		p.simulation.RegisterComponent(proc)
	}

	for _, c := range p.caches {
		p.simulation.RegisterComponent(c)
	}

	p.simulation.RegisterComponent(p.bus)
	p.simulation.RegisterComponent(p.memory)
}

func (b Builder) attachLoggers(p *Platform) {
	p.engine.AcceptHook(sim.NewEventLogger(b.logger))

	portLogger := sim.NewPortMsgLogger(b.logger)
	for _, c := range p.components() {
		for _, port := range c.Ports() {
			port.AcceptHook(portLogger)
		}
	}
}
