package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/report"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show <db>",
	Short: "Print the statistics stored by `run --record`.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !strings.HasSuffix(path, ".sqlite3") {
			path += ".sqlite3"
		}

		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("open recording: %w", err)
		}

		r := datarecording.NewReader(path)
		defer r.Close()

		snapshot, err := report.Load(cmd.Context(), r)
		if err != nil {
			return err
		}

		report.Print(cmd.OutOrStdout(), snapshot)

		return nil
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
