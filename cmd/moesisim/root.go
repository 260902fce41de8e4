package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

var rootCmd = &cobra.Command{
	Use:   "moesisim",
	Short: "moesisim simulates a shared-bus multiprocessor with MOESI caches.",
	Long: `moesisim replays a per-processor memory trace on private caches ` +
		`that keep coherent with the MOESI protocol over a single shared ` +
		`bus, and reports hit rates, bus contention and memory traffic.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}
