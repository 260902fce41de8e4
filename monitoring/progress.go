package monitoring

import (
	"encoding/json"
	"sync"
	"time"
)

// A ProgressBar shows how far a processor is through its trace. An entry that
// waits for the memory system is in progress until its response arrives. A
// NOP finishes as soon as it is issued.
type ProgressBar struct {
	lock sync.Mutex

	ID         string
	Name       string
	StartTime  time.Time
	Total      uint64
	Finished   uint64
	InProgress uint64
}

// Issue marks one entry as sent to the memory system.
func (b *ProgressBar) Issue() {
	b.lock.Lock()
	defer b.lock.Unlock()

	b.InProgress++
}

// Complete marks one entry as finished. The entry must have been issued
// unless it never waited for memory.
func (b *ProgressBar) Complete(issued bool) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if issued {
		if b.InProgress == 0 {
			panic("progress bar " + b.Name + " has no entry in progress")
		}

		b.InProgress--
	}

	b.Finished++
}

// Counts returns the number of finished and in-progress entries.
func (b *ProgressBar) Counts() (finished, inProgress uint64) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return b.Finished, b.InProgress
}

// MarshalJSON reads the counters under the lock, since the web server and
// the engine run on different goroutines.
func (b *ProgressBar) MarshalJSON() ([]byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	return json.Marshal(struct {
		ID         string    `json:"id"`
		Name       string    `json:"name"`
		StartTime  time.Time `json:"start_time"`
		Total      uint64    `json:"total"`
		Finished   uint64    `json:"finished"`
		InProgress uint64    `json:"in_progress"`
	}{b.ID, b.Name, b.StartTime, b.Total, b.Finished, b.InProgress})
}
