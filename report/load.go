package report

import (
	"context"
	"fmt"

	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/mem/moesi"
)

// Load reads back the statistics that Record has written.
func Load(
	ctx context.Context,
	r datarecording.DataReader,
) (moesi.StatsSnapshot, error) {
	r.MapTable(CPUTable, cpuEntry{})
	r.MapTable(BusWaitTable, busWaitEntry{})
	r.MapTable(MemoryTable, memoryEntry{})

	var s moesi.StatsSnapshot

	cpus, _, err := r.Query(ctx, CPUTable,
		datarecording.QueryParams{OrderBy: "CPU"})
	if err != nil {
		return s, fmt.Errorf("read %s: %w", CPUTable, err)
	}

	for _, row := range cpus {
		e := row.(*cpuEntry)
		s.CPUs = append(s.CPUs, moesi.CPUStats{
			ReadHits:    e.ReadHits,
			ReadMisses:  e.ReadMisses,
			WriteHits:   e.WriteHits,
			WriteMisses: e.WriteMisses,
		})
	}

	caches, _, err := r.Query(ctx, BusWaitTable,
		datarecording.QueryParams{OrderBy: "Cache"})
	if err != nil {
		return s, fmt.Errorf("read %s: %w", BusWaitTable, err)
	}

	for _, row := range caches {
		e := row.(*busWaitEntry)
		s.Caches = append(s.Caches, moesi.CacheStats{
			BusWaitCycles:         e.BusWaitCycles,
			BusTransactions:       e.BusTransactions,
			SnoopHits:             e.SnoopHits,
			InvalidationsReceived: e.InvalidationsReceived,
			WriteBacks:            e.WriteBacks,
		})
	}

	mems, _, err := r.Query(ctx, MemoryTable, datarecording.QueryParams{})
	if err != nil {
		return s, fmt.Errorf("read %s: %w", MemoryTable, err)
	}

	if len(mems) != 1 {
		return s, fmt.Errorf("%s has %d rows, expected 1", MemoryTable, len(mems))
	}

	m := mems[0].(*memoryEntry)
	s.Memory = moesi.MemoryStats{
		Reads:      m.Reads,
		Writes:     m.Writes,
		WriteBacks: m.WriteBacks,
		Drains:     m.Drains,
	}
	s.TotalCycles = m.TotalCycles

	return s, nil
}
