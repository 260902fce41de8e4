package tracing

import (
	"sync"

	"github.com/sarchlab/moesisim/sim"
)

// BusyTimeTracer traces the time that a domain is processing a kind of task.
// If the task processing time overlaps, this tracer only consider one instance
// of the overlapped time.
type BusyTimeTracer struct {
	timeTeller sim.TimeTeller
	filter     TaskFilter

	lock          sync.Mutex
	inflightTasks map[string]struct{}
	busySince     sim.VTimeInCycle
	busyTime      sim.VTimeInCycle
}

// NewBusyTimeTracer creates a new BusyTimeTracer
func NewBusyTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *BusyTimeTracer {
	return &BusyTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]struct{}),
	}
}

// BusyTime returns the number of cycles in which at least one task was in
// flight. Tasks that are still running are counted up to the current cycle.
func (t *BusyTimeTracer) BusyTime() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.inflightTasks) == 0 {
		return t.busyTime
	}

	return t.busyTime + t.timeTeller.CurrentTime() - t.busySince
}

// StartTask records the task start time
func (t *BusyTimeTracer) StartTask(task Task) {
	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if len(t.inflightTasks) == 0 {
		t.busySince = t.timeTeller.CurrentTime()
	}

	t.inflightTasks[task.ID] = struct{}{}
}

// StepTask does nothing
func (t *BusyTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *BusyTimeTracer) EndTask(task Task) {
	t.lock.Lock()
	defer t.lock.Unlock()

	if _, ok := t.inflightTasks[task.ID]; !ok {
		return
	}

	delete(t.inflightTasks, task.ID)

	if len(t.inflightTasks) == 0 {
		t.busyTime += t.timeTeller.CurrentTime() - t.busySince
	}
}
