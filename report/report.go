// Package report renders the statistics of a run.
package report

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/mem/moesi/memory"
)

var (
	header    = color.New(color.FgCyan, color.Bold)
	highlight = color.New(color.FgYellow)
)

// Print writes the per-processor, per-cache, and memory statistics.
func Print(w io.Writer, s moesi.StatsSnapshot) {
	printCPUs(w, s)
	fmt.Fprintln(w)
	printBusWait(w, s)
	fmt.Fprintln(w)
	printMemory(w, s)
}

func printCPUs(w io.Writer, s moesi.StatsSnapshot) {
	header.Fprintln(w, "Processors")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "CPU\tRead Hit\tRead Miss\tWrite Hit\tWrite Miss\tHit Rate\t")

	var total moesi.CPUStats

	for i, c := range s.CPUs {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t%s\t\n",
			i, c.ReadHits, c.ReadMisses, c.WriteHits, c.WriteMisses,
			percent(c.ReadHits+c.WriteHits, c.Accesses()))

		total.ReadHits += c.ReadHits
		total.ReadMisses += c.ReadMisses
		total.WriteHits += c.WriteHits
		total.WriteMisses += c.WriteMisses
	}

	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%s\t\n",
		highlight.Sprint("Total"),
		total.ReadHits, total.ReadMisses, total.WriteHits, total.WriteMisses,
		percent(total.ReadHits+total.WriteHits, total.Accesses()))

	tw.Flush()
}

func printBusWait(w io.Writer, s moesi.StatsSnapshot) {
	header.Fprintln(w, "Bus")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Cache\tTransactions\tWait Cycles\tOf Total Time\tSnoop Hits\tInvalidated\tWrite Backs\t")

	for i, c := range s.Caches {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%d\t%d\t%d\t\n",
			i, c.BusTransactions, c.BusWaitCycles,
			percent(c.BusWaitCycles, s.TotalCycles),
			c.SnoopHits, c.InvalidationsReceived, c.WriteBacks)
	}

	tw.Flush()

	fmt.Fprintf(w, "Total time: %s cycles\n", highlight.Sprint(s.TotalCycles))
}

func printMemory(w io.Writer, s moesi.StatsSnapshot) {
	header.Fprintln(w, "Memory")

	m := s.Memory
	fmt.Fprintf(w, "Reads: %d\n", m.Reads)
	fmt.Fprintf(w, "Writes: %d (write backs %d, drains %d)\n",
		m.Writes, m.WriteBacks, m.Drains)
}

// PrintAccessLog writes how often memory served each line, in address order.
// At most limit lines are written if limit is positive.
func PrintAccessLog(w io.Writer, records []memory.AccessRecord, limit int) {
	header.Fprintln(w, "Memory Lines")

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Address\tReads\tWrites\t")

	for i, r := range records {
		if limit > 0 && i == limit {
			fmt.Fprintf(tw, "...\t\t\t\n")
			break
		}

		fmt.Fprintf(tw, "0x%x\t%d\t%d\t\n", r.Addr, r.Reads, r.Writes)
	}

	tw.Flush()
}

func percent(part, whole uint64) string {
	if whole == 0 {
		return "-"
	}

	return fmt.Sprintf("%.2f%%", 100*float64(part)/float64(whole))
}

type cpuEntry struct {
	CPU         int
	ReadHits    uint64
	ReadMisses  uint64
	WriteHits   uint64
	WriteMisses uint64
}

type busWaitEntry struct {
	Cache                 int
	BusTransactions       uint64
	BusWaitCycles         uint64
	SnoopHits             uint64
	InvalidationsReceived uint64
	WriteBacks            uint64
}

type memoryEntry struct {
	Reads       uint64
	Writes      uint64
	WriteBacks  uint64
	Drains      uint64
	TotalCycles uint64
}

// Table names used by Record.
const (
	CPUTable     = "cpu_stats"
	BusWaitTable = "bus_wait"
	MemoryTable  = "memory_stats"
)

// Record writes the statistics into the recorder and flushes it.
func Record(r datarecording.DataRecorder, s moesi.StatsSnapshot) {
	r.CreateTable(CPUTable, cpuEntry{})
	r.CreateTable(BusWaitTable, busWaitEntry{})
	r.CreateTable(MemoryTable, memoryEntry{})

	for i, c := range s.CPUs {
		r.InsertData(CPUTable, cpuEntry{
			CPU:         i,
			ReadHits:    c.ReadHits,
			ReadMisses:  c.ReadMisses,
			WriteHits:   c.WriteHits,
			WriteMisses: c.WriteMisses,
		})
	}

	for i, c := range s.Caches {
		r.InsertData(BusWaitTable, busWaitEntry{
			Cache:                 i,
			BusTransactions:       c.BusTransactions,
			BusWaitCycles:         c.BusWaitCycles,
			SnoopHits:             c.SnoopHits,
			InvalidationsReceived: c.InvalidationsReceived,
			WriteBacks:            c.WriteBacks,
		})
	}

	r.InsertData(MemoryTable, memoryEntry{
		Reads:       s.Memory.Reads,
		Writes:      s.Memory.Writes,
		WriteBacks:  s.Memory.WriteBacks,
		Drains:      s.Memory.Drains,
		TotalCycles: s.TotalCycles,
	})

	r.Flush()
}
