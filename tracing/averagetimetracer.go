package tracing

import (
	"sync"

	"github.com/sarchlab/moesisim/sim"
)

// AverageTimeTracer collects the average and total time of executing a
// certain type of task. Overlapping tasks are counted separately.
type AverageTimeTracer struct {
	timeTeller    sim.TimeTeller
	filter        TaskFilter
	lock          sync.Mutex
	totalTime     sim.VTimeInCycle
	maxTime       sim.VTimeInCycle
	inflightTasks map[string]Task
	taskCount     uint64
}

// NewAverageTimeTracer creates a new AverageTimeTracer
func NewAverageTimeTracer(
	timeTeller sim.TimeTeller,
	filter TaskFilter,
) *AverageTimeTracer {
	return &AverageTimeTracer{
		timeTeller:    timeTeller,
		filter:        filter,
		inflightTasks: make(map[string]Task),
	}
}

// AverageTime returns the average number of cycles spent on a task.
func (t *AverageTimeTracer) AverageTime() float64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	if t.taskCount == 0 {
		return 0
	}

	return float64(t.totalTime) / float64(t.taskCount)
}

// TotalTime returns the sum of the durations of all the completed tasks.
func (t *AverageTimeTracer) TotalTime() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.totalTime
}

// MaxTime returns the duration of the longest completed task.
func (t *AverageTimeTracer) MaxTime() sim.VTimeInCycle {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.maxTime
}

// TotalCount returns the total number of tasks.
func (t *AverageTimeTracer) TotalCount() uint64 {
	t.lock.Lock()
	defer t.lock.Unlock()

	return t.taskCount
}

// StartTask records the task start time
func (t *AverageTimeTracer) StartTask(task Task) {
	task.StartTime = t.timeTeller.CurrentTime()

	if t.filter != nil && !t.filter(task) {
		return
	}

	t.lock.Lock()
	t.inflightTasks[task.ID] = task
	t.lock.Unlock()
}

// StepTask does nothing
func (t *AverageTimeTracer) StepTask(_ Task) {
	// Do nothing
}

// EndTask records the end of the task
func (t *AverageTimeTracer) EndTask(task Task) {
	task.EndTime = t.timeTeller.CurrentTime()

	t.lock.Lock()
	defer t.lock.Unlock()

	originalTask, ok := t.inflightTasks[task.ID]
	if !ok {
		return
	}

	duration := task.EndTime - originalTask.StartTime
	t.totalTime += duration
	t.maxTime = max(t.maxTime, duration)
	t.taskCount++

	delete(t.inflightTasks, task.ID)
}
