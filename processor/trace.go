// Package processor replays memory traces into the caches. Each processor
// keeps one request outstanding and waits for the system to settle once its
// trace ends.
package processor

import "fmt"

// Op is the kind of a trace entry.
type Op int

// Trace operations.
const (
	OpNop Op = iota
	OpRead
	OpWrite
)

func (o Op) String() string {
	switch o {
	case OpNop:
		return "NOP"
	case OpRead:
		return "READ"
	case OpWrite:
		return "WRITE"
	default:
		return fmt.Sprintf("Op(%d)", int(o))
	}
}

// TraceEntry is one operation of a processor.
type TraceEntry struct {
	Op   Op
	Addr uint64
}

// A TraceSource provides the operations of every processor, in order. Next
// returns false once the trace of the processor is over.
type TraceSource interface {
	Next(cpu int) (TraceEntry, bool, error)
}

// An EntryCounter knows how many entries each processor has. Progress bars
// use it for their totals.
type EntryCounter interface {
	NumEntries(cpu int) int
}

// MemoryTrace is a trace built in code.
type MemoryTrace struct {
	entries [][]TraceEntry
	next    []int
}

// MaxCPUs bounds the processor indexes that a trace may name.
const MaxCPUs = 1024

// NewMemoryTrace creates an empty trace for the given number of processors.
func NewMemoryTrace(numCPUs int) *MemoryTrace {
	return &MemoryTrace{
		entries: make([][]TraceEntry, numCPUs),
		next:    make([]int, numCPUs),
	}
}

// Add appends entries to the trace of a processor.
func (t *MemoryTrace) Add(cpu int, entries ...TraceEntry) *MemoryTrace {
	t.entries[cpu] = append(t.entries[cpu], entries...)
	return t
}

// Read appends a read.
func (t *MemoryTrace) Read(cpu int, addr uint64) *MemoryTrace {
	return t.Add(cpu, TraceEntry{Op: OpRead, Addr: addr})
}

// Write appends a write.
func (t *MemoryTrace) Write(cpu int, addr uint64) *MemoryTrace {
	return t.Add(cpu, TraceEntry{Op: OpWrite, Addr: addr})
}

// Nop appends n NOPs.
func (t *MemoryTrace) Nop(cpu int, n int) *MemoryTrace {
	for i := 0; i < n; i++ {
		t.Add(cpu, TraceEntry{Op: OpNop})
	}

	return t
}

// NumCPUs returns the number of processors of the trace.
func (t *MemoryTrace) NumCPUs() int {
	return len(t.entries)
}

// NumEntries returns the number of entries of a processor.
func (t *MemoryTrace) NumEntries(cpu int) int {
	if cpu < 0 || cpu >= len(t.entries) {
		return 0
	}

	return len(t.entries[cpu])
}

// Next returns the next entry of a processor.
func (t *MemoryTrace) Next(cpu int) (TraceEntry, bool, error) {
	if cpu < 0 || cpu >= len(t.entries) {
		return TraceEntry{}, false, nil
	}

	if t.next[cpu] >= len(t.entries[cpu]) {
		return TraceEntry{}, false, nil
	}

	e := t.entries[cpu][t.next[cpu]]
	t.next[cpu]++

	return e, true, nil
}

// Rewind starts every processor from the beginning again.
func (t *MemoryTrace) Rewind() {
	for i := range t.next {
		t.next[i] = 0
	}
}
