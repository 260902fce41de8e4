package platform

import (
	"errors"
	"fmt"
	"sort"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/bus"
	"github.com/sarchlab/moesisim/mem/moesi/cache"
	"github.com/sarchlab/moesisim/mem/moesi/memory"
	"github.com/sarchlab/moesisim/monitoring"
	"github.com/sarchlab/moesisim/processor"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/simulation"
)

// Platform is a built system of processors, caches, a bus and a memory.
type Platform struct {
	config     Config
	simulation *simulation.Simulation
	engine     sim.Engine
	stats      *moesi.Statistics

	processors []*processor.Comp
	caches     []*cache.Comp
	bus        *bus.Comp
	memory     *memory.Comp

	progressBars []*monitoring.ProgressBar
	tracers      timingTracers
}

// Config returns the configuration that the platform is built with.
func (p *Platform) Config() Config {
	return p.config
}

// Simulation returns the simulation that owns the engine.
func (p *Platform) Simulation() *simulation.Simulation {
	return p.simulation
}

// NumCPUs returns the number of processor-cache pairs.
func (p *Platform) NumCPUs() int {
	return len(p.processors)
}

// Processor returns the processor with the given index.
func (p *Platform) Processor(i int) *processor.Comp {
	return p.processors[i]
}

// Cache returns the cache of the processor with the given index.
func (p *Platform) Cache(i int) *cache.Comp {
	return p.caches[i]
}

// Bus returns the shared bus.
func (p *Platform) Bus() *bus.Comp {
	return p.bus
}

// Memory returns the main memory.
func (p *Platform) Memory() *memory.Comp {
	return p.memory
}

// Statistics returns the counters of the run.
func (p *Platform) Statistics() *moesi.Statistics {
	return p.stats
}

// Run replays the whole trace. It returns the final statistics, or an error if
// the trace is malformed, the run does not finish, or the caches end up
// inconsistent.
func (p *Platform) Run() (moesi.StatsSnapshot, error) {
	for _, proc := range p.processors {
		proc.TickLater()
	}

	err := p.engine.Run()
	p.completeProgressBars()

	if err != nil {
		return moesi.StatsSnapshot{}, fmt.Errorf("simulation stopped: %w", err)
	}

	for _, proc := range p.processors {
		if proc.Err() != nil {
			return moesi.StatsSnapshot{}, proc.Err()
		}
	}

	for _, proc := range p.processors {
		if !proc.Done() {
			return moesi.StatsSnapshot{}, fmt.Errorf(
				"%s stopped after %d entries without finishing",
				proc.Name(), proc.NumCompleted())
		}
	}

	if err := p.CheckConsistency(); err != nil {
		return moesi.StatsSnapshot{}, err
	}

	snapshot := p.stats.Snapshot()
	snapshot.TotalCycles = uint64(p.engine.CurrentTime())

	return snapshot, nil
}

// CheckConsistency checks the recency ranking of every set and that the
// caches agree on the ownership of every line.
func (p *Platform) CheckConsistency() error {
	var errs []error

	for _, c := range p.caches {
		if err := c.CheckConsistency(); err != nil {
			errs = append(errs, err)
		}
	}

	errs = append(errs, p.checkCoherence()...)

	return errors.Join(errs...)
}

// checkCoherence allows a line to be held in M or E only by a single cache,
// and in O by at most one cache.
func (p *Platform) checkCoherence() []error {
	holders := make(map[uint64][]moesi.State)

	for _, c := range p.caches {
		c.ForEachValidLine(func(addr uint64, state moesi.State) {
			holders[addr] = append(holders[addr], state)
		})
	}

	addrs := make([]uint64, 0, len(holders))
	for addr := range holders {
		addrs = append(addrs, addr)
	}

	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })

	var errs []error

	for _, addr := range addrs {
		states := holders[addr]
		if !statesAreCoherent(states) {
			errs = append(errs,
				fmt.Errorf("line 0x%x is held as %v", addr, states))
		}
	}

	return errs
}

func statesAreCoherent(states []moesi.State) bool {
	owners := 0

	for _, s := range states {
		switch s {
		case moesi.Modified, moesi.Exclusive:
			if len(states) > 1 {
				return false
			}
		case moesi.Owned:
			owners++
		}
	}

	return owners <= 1
}

func (p *Platform) completeProgressBars() {
	monitor := p.simulation.GetMonitor()
	if monitor == nil {
		return
	}

	for _, bar := range p.progressBars {
		monitor.CompleteProgressBar(bar)
	}
}

func (p *Platform) components() []sim.Component {
	comps := make([]sim.Component, 0, 2*len(p.processors)+2)

	for _, proc := range p.processors {
		comps = append(comps, proc)
	}

	for _, c := range p.caches {
		comps = append(comps, c)
	}

	return append(comps, p.bus, p.memory)
}
