// Package simulation bundles the services that a simulation run needs: the
// engine, the optional data recorder and task tracer, and the optional web
// monitor.
package simulation

import (
	"fmt"
	"io"

	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/monitoring"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/tracing"
)

// A Simulation provides the service requires to define a simulation.
type Simulation struct {
	id     string
	engine sim.Engine

	dataRecorder datarecording.DataRecorder
	monitor      *monitoring.Monitor
	visTracer    *tracing.DBTracer

	components    []sim.Component
	compNameIndex map[string]int
	ports         []sim.Port
	portNameIndex map[string]int
}

// ID returns the unique ID of the simulation run.
func (s *Simulation) ID() string {
	return s.id
}

// GetEngine returns the engine used in the simulation.
func (s *Simulation) GetEngine() sim.Engine {
	return s.engine
}

// GetDataRecorder returns the data recorder used in the simulation. It
// returns nil if recording is off.
func (s *Simulation) GetDataRecorder() datarecording.DataRecorder {
	return s.dataRecorder
}

// GetMonitor returns the monitor used in the simulation. It returns nil if
// monitoring is off.
func (s *Simulation) GetMonitor() *monitoring.Monitor {
	return s.monitor
}

// GetVisTracer returns the tracer used in the simulation. It returns nil if
// recording is off.
func (s *Simulation) GetVisTracer() *tracing.DBTracer {
	return s.visTracer
}

// RegisterComponent registers a component with the simulation. The component
// is shown in the monitor and, if it reports tasks, traced into the database.
func (s *Simulation) RegisterComponent(c sim.Component) {
	compName := c.Name()
	if _, found := s.compNameIndex[compName]; found {
		panic("component " + compName + " already registered")
	}

	s.components = append(s.components, c)
	s.compNameIndex[compName] = len(s.components) - 1

	for _, p := range c.Ports() {
		s.registerPort(p)
	}

	if s.monitor != nil {
		s.monitor.RegisterComponent(c)
	}

	if s.visTracer != nil {
		if domain, ok := c.(tracing.NamedHookable); ok {
			tracing.CollectTrace(domain, s.visTracer)
		}
	}
}

func (s *Simulation) registerPort(p sim.Port) {
	portName := p.Name()
	if _, found := s.portNameIndex[portName]; found {
		panic("port " + portName + " already registered")
	}

	s.ports = append(s.ports, p)
	s.portNameIndex[portName] = len(s.ports) - 1
}

// Components returns all the registered components, in registration order.
func (s *Simulation) Components() []sim.Component {
	return s.components
}

// GetComponentByName returns the component with the given name.
func (s *Simulation) GetComponentByName(name string) sim.Component {
	idx, found := s.compNameIndex[name]
	if !found {
		panic(fmt.Sprintf("component %s is not registered", name))
	}

	return s.components[idx]
}

// GetPortByName returns the port with the given name.
func (s *Simulation) GetPortByName(name string) sim.Port {
	idx, found := s.portNameIndex[name]
	if !found {
		panic(fmt.Sprintf("port %s is not registered", name))
	}

	return s.ports[idx]
}

// Terminate writes the unfinished tasks, flushes the recorder and closes the
// database.
func (s *Simulation) Terminate() {
	s.engine.Finished()

	if s.visTracer != nil {
		s.visTracer.Terminate()
	}

	if s.dataRecorder == nil {
		return
	}

	s.dataRecorder.Flush()

	if c, ok := s.dataRecorder.(io.Closer); ok {
		c.Close()
	}
}
