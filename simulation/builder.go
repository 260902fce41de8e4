package simulation

import (
	"github.com/rs/xid"
	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/monitoring"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	monitorOn      bool
	monitorPort    int
	recordingOn    bool
	outputFileName string
	cycleLimit     sim.VTimeInCycle
}

// MakeBuilder creates a new builder. By default, the simulation runs without
// monitoring and without recording.
func MakeBuilder() Builder {
	return Builder{}
}

// WithMonitoring turns on the web monitor.
func (b Builder) WithMonitoring() Builder {
	b.monitorOn = true
	return b
}

// WithoutMonitoring sets the simulation to not use monitoring.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithRecording makes the simulation record task traces and final
// statistics into an SQLite database.
func (b Builder) WithRecording() Builder {
	b.recordingOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
// The ".sqlite3" suffix is added automatically.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithCycleLimit makes the engine stop with an error if the simulation is
// still running after the given cycle.
func (b Builder) WithCycleLimit(limit sim.VTimeInCycle) Builder {
	b.cycleLimit = limit
	return b
}

func (b Builder) parametersMustBeValid() {
	if !b.monitorOn && b.monitorPort != 0 {
		panic("monitor port cannot be set when monitoring is disabled")
	}

	if !b.recordingOn && b.outputFileName != "" {
		panic("output file cannot be set when recording is disabled")
	}
}

// Build builds the simulation.
func (b Builder) Build() *Simulation {
	b.parametersMustBeValid()

	s := &Simulation{
		id:            xid.New().String(),
		compNameIndex: make(map[string]int),
		portNameIndex: make(map[string]int),
	}

	engine := sim.NewSerialEngine()
	engine.SetCycleLimit(b.cycleLimit)
	s.engine = engine

	if b.recordingOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "moesisim_" + s.id
		}

		s.dataRecorder = datarecording.New(outputPath)
		s.visTracer = tracing.NewDBTracer(s.engine, s.dataRecorder)
	}

	if b.monitorOn {
		s.monitor = monitoring.NewMonitor()
		if b.monitorPort > 0 {
			s.monitor.WithPortNumber(b.monitorPort)
		}
		s.monitor.RegisterEngine(s.engine)
		s.monitor.StartServer()
	}

	return s
}
