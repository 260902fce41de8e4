package sim

import (
	"container/heap"
	"sync"
)

// EventQueue are a queue of event ordered by the time of events
type EventQueue interface {
	Push(evt Event)
	Pop() Event
	Len() int
	Peek() Event
}

// EventQueueImpl provides a thread safe event queue. Events that happen at
// the same cycle are popped in the order they are pushed, so that a run is
// reproducible.
type EventQueueImpl struct {
	sync.Mutex
	events  eventHeap
	nextSeq uint64
}

// NewEventQueue creates and returns a newly created EventQueue
func NewEventQueue() *EventQueueImpl {
	q := new(EventQueueImpl)
	q.events = make([]queuedEvent, 0)
	heap.Init(&q.events)

	return q
}

// Push adds an event to the event queue
func (q *EventQueueImpl) Push(evt Event) {
	q.Lock()
	heap.Push(&q.events, queuedEvent{evt: evt, seq: q.nextSeq})
	q.nextSeq++
	q.Unlock()
}

// Pop returns the next earliest event
func (q *EventQueueImpl) Pop() Event {
	q.Lock()
	e := heap.Pop(&q.events).(queuedEvent)
	q.Unlock()

	return e.evt
}

// Len returns the number of event in the queue
func (q *EventQueueImpl) Len() int {
	q.Lock()
	l := q.events.Len()
	q.Unlock()

	return l
}

// Peek returns the event in front of the queue without removing it from the
// queue
func (q *EventQueueImpl) Peek() Event {
	q.Lock()
	evt := q.events[0].evt
	q.Unlock()

	return evt
}

type queuedEvent struct {
	evt Event
	seq uint64
}

type eventHeap []queuedEvent

// Len returns the length of the event queue
func (h eventHeap) Len() int {
	return len(h)
}

// Less determines the order between two events. Less returns true if the i-th
// event happens before the j-th event.
func (h eventHeap) Less(i, j int) bool {
	if h[i].evt.Time() != h[j].evt.Time() {
		return h[i].evt.Time() < h[j].evt.Time()
	}

	return h[i].seq < h[j].seq
}

// Swap changes the position of two events in the event queue
func (h eventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
}

// Push adds an event into the event queue
func (h *eventHeap) Push(x interface{}) {
	*h = append(*h, x.(queuedEvent))
}

// Pop removes and returns the next event to happen
func (h *eventHeap) Pop() interface{} {
	old := *h
	n := len(old)
	event := old[n-1]
	*h = old[0 : n-1]

	return event
}
