package main

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/moesisim/sim"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

func setEnv(key, value string) {
	old, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())

	DeferCleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

var _ = Describe("Run options", func() {
	var flags *pflag.FlagSet

	BeforeEach(func() {
		flags = pflag.NewFlagSet("run", pflag.ContinueOnError)
		addRunFlags(flags)
	})

	It("should use the defaults", func() {
		Expect(flags.Parse(nil)).To(Succeed())

		o, err := parseRunOptions(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(o.config.NumSets).To(Equal(uint64(128)))
		Expect(o.config.Associativity).To(Equal(8))
		Expect(o.config.LineBytes).To(Equal(uint64(32)))
		Expect(o.config.MemoryLatency).To(Equal(100))
		Expect(o.config.CycleLimit).To(Equal(sim.VTimeInCycle(0)))
		Expect(o.monitor).To(BeFalse())
	})

	It("should read flags", func() {
		Expect(flags.Parse([]string{
			"--sets", "16", "--assoc", "2", "--line-bytes", "64",
			"--cycle-limit", "5000", "--access-log", "3",
		})).To(Succeed())

		o, err := parseRunOptions(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(o.config.NumSets).To(Equal(uint64(16)))
		Expect(o.config.Associativity).To(Equal(2))
		Expect(o.config.LineBytes).To(Equal(uint64(64)))
		Expect(o.config.CycleLimit).To(Equal(sim.VTimeInCycle(5000)))
		Expect(o.accessLog).To(Equal(3))
	})

	It("should fall back to the environment", func() {
		setEnv("MOESISIM_NUM_SETS", "64")
		setEnv("MOESISIM_MEM_LATENCY", "20")
		setEnv("MOESISIM_VERBOSE", "true")
		Expect(flags.Parse([]string{"--mem-latency", "30"})).To(Succeed())

		o, err := parseRunOptions(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(o.config.NumSets).To(Equal(uint64(64)))
		Expect(o.config.MemoryLatency).To(Equal(30))
		Expect(o.verbose).To(BeTrue())
	})

	It("should report a malformed environment variable", func() {
		setEnv("MOESISIM_ASSOC", "many")
		Expect(flags.Parse(nil)).To(Succeed())

		_, err := parseRunOptions(flags)

		Expect(err).To(MatchError(ContainSubstring("MOESISIM_ASSOC")))
	})

	It("should reject negative values", func() {
		Expect(flags.Parse([]string{"--mem-latency", "-1"})).To(Succeed())

		_, err := parseRunOptions(flags)

		Expect(err).To(MatchError(ContainSubstring("--mem-latency")))
	})

	It("should turn on the monitor when opening it", func() {
		Expect(flags.Parse([]string{"--open-monitor"})).To(Succeed())

		o, err := parseRunOptions(flags)

		Expect(err).NotTo(HaveOccurred())
		Expect(o.monitor).To(BeTrue())
	})

	It("should reject a monitor port without the monitor", func() {
		Expect(flags.Parse([]string{"--monitor-port", "8080"})).To(Succeed())

		_, err := parseRunOptions(flags)

		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Run command", func() {
	var (
		cmd *cobra.Command
		out *bytes.Buffer
		dir string
	)

	writeTrace := func(content string) string {
		path := filepath.Join(dir, "trace.txt")
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		out = new(bytes.Buffer)

		cmd = &cobra.Command{
			Use:          "run",
			Args:         cobra.ExactArgs(1),
			RunE:         runTrace,
			SilenceUsage: true,
		}
		addRunFlags(cmd.Flags())
		cmd.SetOut(out)
		cmd.SetErr(out)
	})

	It("should print the statistics", func() {
		path := writeTrace("# two reads\n0 R 0x40\n0 R 0x40\n")
		cmd.SetArgs([]string{"--mem-latency", "10", "--access-log", "4", path})

		Expect(cmd.Execute()).To(Succeed())

		Expect(out.String()).To(ContainSubstring("Processors"))
		Expect(out.String()).To(ContainSubstring("50.00%"))
		Expect(out.String()).To(ContainSubstring("Reads: 1"))
		Expect(out.String()).To(ContainSubstring("Memory Lines"))
	})

	It("should write the trace log", func() {
		path := writeTrace("0 W 0x80\n")
		logPath := filepath.Join(dir, "events.log")
		cmd.SetArgs([]string{"--mem-latency", "10", "--trace-log", logPath, path})

		Expect(cmd.Execute()).To(Succeed())

		content, err := os.ReadFile(logPath)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(content)).To(ContainSubstring("MOESI.CPU[0]"))
	})

	It("should fail on a malformed trace", func() {
		path := writeTrace("0 R 0x40\n0 X 0x40\n")
		cmd.SetArgs([]string{path})

		err := cmd.Execute()

		Expect(err).To(MatchError(ContainSubstring("trace.txt:2")))
	})

	It("should fail on an invalid geometry", func() {
		path := writeTrace("0 R 0x40\n")
		cmd.SetArgs([]string{"--sets", "3", path})

		err := cmd.Execute()

		Expect(err).To(MatchError(ContainSubstring("invalid configuration")))
	})

	It("should fail when the trace does not exist", func() {
		cmd.SetArgs([]string{filepath.Join(dir, "missing.txt")})

		err := cmd.Execute()

		Expect(err).To(MatchError(ContainSubstring("open trace")))
	})

	It("should stop at the cycle limit", func() {
		path := writeTrace("0 R 0x40\n1 W 0x40\n")
		cmd.SetArgs([]string{"--cycle-limit", "3", path})

		err := cmd.Execute()

		Expect(err).To(MatchError(ContainSubstring("simulation stopped")))
	})

	It("should show a recorded run", func() {
		path := writeTrace("0 R 0x40\n0 R 0x80\n")
		db := filepath.Join(dir, "stats")
		cmd.SetArgs([]string{"--mem-latency", "10", "--record", db, path})

		Expect(cmd.Execute()).To(Succeed())

		show := &cobra.Command{Use: "show", Args: cobra.ExactArgs(1), RunE: showCmd.RunE}
		shown := new(bytes.Buffer)
		show.SetOut(shown)
		show.SetArgs([]string{db})

		Expect(show.Execute()).To(Succeed())
		Expect(shown.String()).To(ContainSubstring("Processors"))
		Expect(shown.String()).To(ContainSubstring("Reads: 2"))
	})

	It("should fail to show a missing recording", func() {
		show := &cobra.Command{Use: "show", Args: cobra.ExactArgs(1), RunE: showCmd.RunE}
		show.SetArgs([]string{filepath.Join(dir, "none")})
		show.SilenceUsage = true

		Expect(show.Execute()).To(MatchError(ContainSubstring("open recording")))
	})
})
