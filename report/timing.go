package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/sarchlab/moesisim/platform"
)

// PrintTiming writes the access latencies of every processor and how busy the
// bus and the memory were.
func PrintTiming(w io.Writer, t platform.Timing, totalCycles uint64) {
	header.Fprintln(w, "Latency")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CPU\tAccesses\tAverage\tMax\t")

	for i, c := range t.CPUs {
		fmt.Fprintf(tw, "%d\t%d\t%.2f\t%d\t\n",
			i, c.Accesses, c.AverageLatency, c.MaxLatency)
	}

	tw.Flush()

	fmt.Fprintf(w, "Bus busy: %d cycles (%s)\n",
		t.BusBusyCycles, percent(t.BusBusyCycles, totalCycles))
	fmt.Fprintf(w, "Memory busy: %d cycles (%s)\n",
		t.MemoryBusyCycles, percent(t.MemoryBusyCycles, totalCycles))
}
