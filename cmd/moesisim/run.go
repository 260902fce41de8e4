package main

import (
	"fmt"
	"io"
	"log"
	"os"

	"github.com/pkg/browser"
	"github.com/sarchlab/moesisim/platform"
	"github.com/sarchlab/moesisim/processor"
	"github.com/sarchlab/moesisim/report"
	"github.com/sarchlab/moesisim/sim"
	"github.com/sarchlab/moesisim/simulation"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run <tracefile>",
	Short: "Run a trace and print the statistics.",
	Long: "`run <tracefile>` replays the trace on the configured system. " +
		"Each trace line is `<cpu> <R|W|N> <address>`. Flags that are not " +
		"given fall back to MOESISIM_* environment variables, which may be " +
		"set in a .env file.",
	Args: cobra.ExactArgs(1),
	RunE: runTrace,
}

func init() {
	rootCmd.AddCommand(runCmd)
	addRunFlags(runCmd.Flags())
}

func addRunFlags(f *pflag.FlagSet) {
	d := platform.DefaultConfig()

	f.Int("sets", int(d.NumSets), "Number of sets in each cache.")
	f.Int("assoc", d.Associativity, "Number of ways in each set.")
	f.Int("line-bytes", int(d.LineBytes), "Cache line size in bytes.")
	f.Int("cache-latency", d.CacheLatency, "Cache lookup latency in cycles.")
	f.Int("mem-latency", d.MemoryLatency, "Memory access latency in cycles.")
	f.Int("cpus", d.NumCPUs,
		"Minimum number of processors. Processors named by the trace are "+
			"always built.")
	f.Int("cycle-limit", 0, "Stop with an error after this cycle. 0 means "+
		"no limit.")
	f.Bool("monitor", false, "Start the web monitor.")
	f.Int("monitor-port", 0, "Port of the web monitor. 0 picks a free port.")
	f.Bool("open-monitor", false, "Open the web monitor in a browser.")
	f.String("record", "", "Record traces and statistics into <db>.sqlite3.")
	f.String("trace-log", "", "Write every event and port message to a file.")
	f.Bool("verbose", false, "Write every event and port message to stderr.")
	f.Bool("parallel-ids", false, "Use globally unique message IDs.")
	f.Int("access-log", 0, "Print the N lowest memory lines that were "+
		"accessed.")
}

type runOptions struct {
	config      platform.Config
	monitor     bool
	monitorPort int
	openMonitor bool
	record      string
	traceLog    string
	verbose     bool
	parallelIDs bool
	accessLog   int
}

func parseRunOptions(flags *pflag.FlagSet) (runOptions, error) {
	o := runOptions{config: platform.DefaultConfig()}

	var sets, lineBytes, cycleLimit int

	ints := []struct {
		name, key string
		dst       *int
	}{
		{"sets", "NUM_SETS", &sets},
		{"assoc", "ASSOC", &o.config.Associativity},
		{"line-bytes", "LINE_BYTES", &lineBytes},
		{"cache-latency", "CACHE_LATENCY", &o.config.CacheLatency},
		{"mem-latency", "MEM_LATENCY", &o.config.MemoryLatency},
		{"cpus", "CPUS", &o.config.NumCPUs},
		{"cycle-limit", "CYCLE_LIMIT", &cycleLimit},
		{"monitor-port", "MONITOR_PORT", &o.monitorPort},
		{"access-log", "ACCESS_LOG", &o.accessLog},
	}

	for _, i := range ints {
		v, err := intFlag(flags, i.name, i.key)
		if err != nil {
			return o, err
		}

		if v < 0 {
			return o, fmt.Errorf("--%s must not be negative", i.name)
		}

		*i.dst = v
	}

	o.config.NumSets = uint64(sets)
	o.config.LineBytes = uint64(lineBytes)
	o.config.CycleLimit = sim.VTimeInCycle(cycleLimit)

	bools := []struct {
		name, key string
		dst       *bool
	}{
		{"monitor", "MONITOR", &o.monitor},
		{"open-monitor", "OPEN_MONITOR", &o.openMonitor},
		{"verbose", "VERBOSE", &o.verbose},
		{"parallel-ids", "PARALLEL_IDS", &o.parallelIDs},
	}

	for _, b := range bools {
		v, err := boolFlag(flags, b.name, b.key)
		if err != nil {
			return o, err
		}

		*b.dst = v
	}

	o.record, _ = flags.GetString("record")
	o.traceLog, _ = flags.GetString("trace-log")

	if o.openMonitor {
		o.monitor = true
	}

	if !o.monitor && o.monitorPort != 0 {
		return o, fmt.Errorf("--monitor-port requires --monitor")
	}

	return o, nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	o, err := parseRunOptions(cmd.Flags())
	if err != nil {
		return err
	}

	if err := o.config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	trace, err := processor.LoadTextTrace(args[0])
	if err != nil {
		return err
	}

	if o.parallelIDs {
		sim.UseParallelIDGenerator()
	}

	logger, closeLog, err := o.logger()
	if err != nil {
		return err
	}
	defer closeLog()

	s := o.simulation()
	defer s.Terminate()

	p, err := platform.MakeBuilder().
		WithSimulation(s).
		WithConfig(o.config).
		WithTrace(trace).
		WithLogger(logger).
		Build("MOESI")
	if err != nil {
		return err
	}

	if o.openMonitor {
		err = browser.OpenURL(s.GetMonitor().URL())
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot open monitor: %v\n", err)
		}
	}

	snapshot, err := p.Run()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	report.Print(out, snapshot)
	fmt.Fprintln(out)
	report.PrintTiming(out, p.Timing(), snapshot.TotalCycles)

	if o.accessLog > 0 {
		fmt.Fprintln(out)
		report.PrintAccessLog(out, p.Memory().AccessLog(), o.accessLog)
	}

	if o.record != "" {
		report.Record(s.GetDataRecorder(), snapshot)
	}

	return nil
}

func (o runOptions) simulation() *simulation.Simulation {
	b := simulation.MakeBuilder().WithCycleLimit(o.config.CycleLimit)

	if o.monitor {
		b = b.WithMonitoring()
		if o.monitorPort > 0 {
			b = b.WithMonitorPort(o.monitorPort)
		}
	}

	if o.record != "" {
		b = b.WithRecording().WithOutputFileName(o.record)
	}

	return b.Build()
}

// logger returns nil when neither --trace-log nor --verbose is given.
func (o runOptions) logger() (*log.Logger, func(), error) {
	var writers []io.Writer

	closeFn := func() {}

	if o.traceLog != "" {
		f, err := os.Create(o.traceLog)
		if err != nil {
			return nil, nil, fmt.Errorf("create trace log: %w", err)
		}

		writers = append(writers, f)
		closeFn = func() { f.Close() }
	}

	if o.verbose {
		writers = append(writers, os.Stderr)
	}

	if len(writers) == 0 {
		return nil, closeFn, nil
	}

	return log.New(io.MultiWriter(writers...), "", 0), closeFn, nil
}
