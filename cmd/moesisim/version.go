package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is overwritten at link time with -ldflags "-X main.version=...".
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of moesisim.",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "moesisim %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
