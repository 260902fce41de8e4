package tracing

import (
	"sync"

	"github.com/sarchlab/moesisim/datarecording"
	"github.com/sarchlab/moesisim/sim"
	"github.com/tebeka/atexit"
)

// TraceTableName is the table that a DBTracer writes completed tasks into.
const TraceTableName = "trace"

type taskTableEntry struct {
	ID        string `json:"id"`
	ParentID  string `json:"parent_id"`
	Kind      string `json:"kind"`
	What      string `json:"what"`
	Location  string `json:"location"`
	StartTime uint64 `json:"start_time"`
	EndTime   uint64 `json:"end_time"`
}

// DBTracer is a tracer that can store tasks into a database.
type DBTracer struct {
	mu         sync.Mutex
	timeTeller sim.TimeTeller
	backend    datarecording.DataRecorder

	startTime, endTime sim.VTimeInCycle
	tracingTasks       map[string]Task
}

// NewDBTracer creates a new DBTracer.
func NewDBTracer(
	timeTeller sim.TimeTeller,
	dataRecorder datarecording.DataRecorder,
) *DBTracer {
	dataRecorder.CreateTable(TraceTableName, taskTableEntry{})

	t := &DBTracer{
		timeTeller:   timeTeller,
		backend:      dataRecorder,
		tracingTasks: make(map[string]Task),
	}

	atexit.Register(func() {
		t.Terminate()
	})

	return t
}

// SetTimeRange limits the tracer to the tasks that overlap with the given
// cycle range. An endTime of 0 means no upper bound.
func (t *DBTracer) SetTimeRange(startTime, endTime sim.VTimeInCycle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.startTime = startTime
	t.endTime = endTime
}

// StartTask marks the start of a task.
func (t *DBTracer) StartTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	startingTaskMustBeValid(task)

	task.StartTime = t.timeTeller.CurrentTime()
	if t.endTime > 0 && task.StartTime > t.endTime {
		return
	}

	t.tracingTasks[task.ID] = task
}

func startingTaskMustBeValid(task Task) {
	if task.ID == "" {
		panic("task ID must be set")
	}

	if task.Kind == "" {
		panic("task kind must be set")
	}

	if task.What == "" {
		panic("task what must be set")
	}

	if task.Location == "" {
		panic("task location must be set")
	}
}

// StepTask marks a step of a task.
func (t *DBTracer) StepTask(_ Task) {
	// Do nothing for now.
}

// EndTask marks the end of a task.
func (t *DBTracer) EndTask(task Task) {
	t.mu.Lock()
	defer t.mu.Unlock()

	originalTask, ok := t.tracingTasks[task.ID]
	if !ok {
		return
	}

	delete(t.tracingTasks, task.ID)

	originalTask.EndTime = t.timeTeller.CurrentTime()
	if originalTask.EndTime < t.startTime {
		return
	}

	t.writeTaskToDB(originalTask)
}

func (t *DBTracer) writeTaskToDB(task Task) {
	t.backend.InsertData(TraceTableName, taskTableEntry{
		ID:        task.ID,
		ParentID:  task.ParentID,
		Kind:      task.Kind,
		What:      task.What,
		Location:  task.Location,
		StartTime: uint64(task.StartTime),
		EndTime:   uint64(task.EndTime),
	})
}

// Terminate writes the unfinished tasks with the current time as their end
// time and flushes the backend.
func (t *DBTracer) Terminate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.timeTeller.CurrentTime()
	for _, task := range t.tracingTasks {
		task.EndTime = now
		t.writeTaskToDB(task)
	}

	t.tracingTasks = make(map[string]Task)
	t.backend.Flush()
}
