package moesi

import (
	"log"
)

// CPUStats counts how the accesses of one processor resolved.
type CPUStats struct {
	ReadHits    uint64
	ReadMisses  uint64
	WriteHits   uint64
	WriteMisses uint64
}

// Accesses returns the total number of accesses.
func (s CPUStats) Accesses() uint64 {
	return s.ReadHits + s.ReadMisses + s.WriteHits + s.WriteMisses
}

// CacheStats counts the bus activity of one cache.
type CacheStats struct {
	BusWaitCycles         uint64
	BusTransactions       uint64
	SnoopHits             uint64
	InvalidationsReceived uint64
	WriteBacks            uint64
}

// MemoryStats counts the accesses that reach memory. Reads include write
// allocates. Writes include write-backs of evicted lines and drains of
// invalidated lines.
type MemoryStats struct {
	Reads      uint64
	Writes     uint64
	WriteBacks uint64
	Drains     uint64
}

// StatsSnapshot is a copy of the statistics at one point in time.
type StatsSnapshot struct {
	CPUs        []CPUStats
	Caches      []CacheStats
	Memory      MemoryStats
	TotalCycles uint64
}

// Statistics collects the counters of one simulation run. The components
// share it by pointer. It is not safe for concurrent use; the components that
// update it all run on the engine goroutine.
type Statistics struct {
	cpus   []CPUStats
	caches []CacheStats
	memory MemoryStats
}

// NewStatistics creates counters for n processor-cache pairs.
func NewStatistics(n int) *Statistics {
	return &Statistics{
		cpus:   make([]CPUStats, n),
		caches: make([]CacheStats, n),
	}
}

func (s *Statistics) cpu(id int) *CPUStats {
	if id < 0 || id >= len(s.cpus) {
		log.Panicf("processor %d has no statistics, there are %d processors",
			id, len(s.cpus))
	}

	return &s.cpus[id]
}

func (s *Statistics) cache(id int) *CacheStats {
	if id < 0 || id >= len(s.caches) {
		log.Panicf("cache %d has no statistics, there are %d caches",
			id, len(s.caches))
	}

	return &s.caches[id]
}

// RecordReadHit counts a read hit.
func (s *Statistics) RecordReadHit(cpu int) {
	s.cpu(cpu).ReadHits++
}

// RecordReadMiss counts a read miss.
func (s *Statistics) RecordReadMiss(cpu int) {
	s.cpu(cpu).ReadMisses++
}

// RecordWriteHit counts a write hit.
func (s *Statistics) RecordWriteHit(cpu int) {
	s.cpu(cpu).WriteHits++
}

// RecordWriteMiss counts a write miss.
func (s *Statistics) RecordWriteMiss(cpu int) {
	s.cpu(cpu).WriteMisses++
}

// AddBusWait adds the cycles a cache spent waiting for a grant.
func (s *Statistics) AddBusWait(cache int, cycles uint64) {
	c := s.cache(cache)
	c.BusWaitCycles += cycles
	c.BusTransactions++
}

// RecordSnoopHit counts a snoop that found a valid copy in the cache.
func (s *Statistics) RecordSnoopHit(cache int) {
	s.cache(cache).SnoopHits++
}

// RecordInvalidation counts a valid copy the cache lost to another cache.
func (s *Statistics) RecordInvalidation(cache int) {
	s.cache(cache).InvalidationsReceived++
}

// RecordWriteBack counts a dirty line the cache evicted.
func (s *Statistics) RecordWriteBack(cache int) {
	s.cache(cache).WriteBacks++
}

// RecordMemoryRead counts a read that memory served.
func (s *Statistics) RecordMemoryRead() {
	s.memory.Reads++
}

// RecordMemoryWrite counts a write that memory served.
func (s *Statistics) RecordMemoryWrite(drain bool) {
	s.memory.Writes++
	if drain {
		s.memory.Drains++
	} else {
		s.memory.WriteBacks++
	}
}

// Snapshot copies the current counters.
func (s *Statistics) Snapshot() StatsSnapshot {
	snap := StatsSnapshot{
		CPUs:   make([]CPUStats, len(s.cpus)),
		Caches: make([]CacheStats, len(s.caches)),
		Memory: s.memory,
	}

	copy(snap.CPUs, s.cpus)
	copy(snap.Caches, s.caches)

	return snap
}
