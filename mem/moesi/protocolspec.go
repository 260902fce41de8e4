package moesi

import (
	"errors"
	"fmt"
)

// Event is something that can change the state of a cache line.
type Event int

// The events that a cache line reacts to.
const (
	ReadHit Event = iota
	WriteHitUpgraded
	FillFromMemory
	FillFromCache
	FillForWrite
	SnoopRead
	SnoopInvalidate
	Evict
)

var eventNames = [...]string{
	"ReadHit",
	"WriteHitUpgraded",
	"FillFromMemory",
	"FillFromCache",
	"FillForWrite",
	"SnoopRead",
	"SnoopInvalidate",
	"Evict",
}

func (e Event) String() string {
	if e < 0 || int(e) >= len(eventNames) {
		return fmt.Sprintf("Event(%d)", int(e))
	}

	return eventNames[e]
}

// Action is a side effect that the owner of a line must perform when a
// transition fires.
type Action int

// The actions a transition can require.
const (
	// SupplyData means the line provides its data to the bus.
	SupplyData Action = iota

	// WriteBack means the dirty data of the line must reach memory.
	WriteBack
)

func (a Action) String() string {
	switch a {
	case SupplyData:
		return "SupplyData"
	case WriteBack:
		return "WriteBack"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Transition moves a line from any of the From states to the To state when
// any of the On events happens.
type Transition struct {
	From    []State
	On      []Event
	To      State
	Actions []Action
}

// ProtocolSpec declares a coherence protocol as data.
type ProtocolSpec struct {
	Name         string
	DefaultState State
	States       []State
	Events       []Event
	Transitions  []Transition
}

// Validate checks that the spec only refers to declared states and events and
// that no state-event pair is defined twice.
func (s ProtocolSpec) Validate() error {
	if s.Name == "" {
		return errors.New("protocol name must not be empty")
	}

	if len(s.States) == 0 {
		return fmt.Errorf("protocol %s declares no states", s.Name)
	}

	if len(s.Events) == 0 {
		return fmt.Errorf("protocol %s declares no events", s.Name)
	}

	if len(s.Transitions) == 0 {
		return fmt.Errorf("protocol %s declares no transitions", s.Name)
	}

	states := make(map[State]bool)
	for _, st := range s.States {
		states[st] = true
	}

	events := make(map[Event]bool)
	for _, ev := range s.Events {
		events[ev] = true
	}

	if !states[s.DefaultState] {
		return fmt.Errorf("protocol %s: default state %s is not declared",
			s.Name, s.DefaultState)
	}

	seen := make(map[tableKey]int)

	for i, t := range s.Transitions {
		err := s.validateTransition(i, t, states, events, seen)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s ProtocolSpec) validateTransition(
	i int,
	t Transition,
	states map[State]bool,
	events map[Event]bool,
	seen map[tableKey]int,
) error {
	if len(t.From) == 0 || len(t.On) == 0 {
		return fmt.Errorf("protocol %s: transition %d has no source state or event",
			s.Name, i)
	}

	if !states[t.To] {
		return fmt.Errorf("protocol %s: transition %d goes to undeclared state %s",
			s.Name, i, t.To)
	}

	for _, from := range t.From {
		if !states[from] {
			return fmt.Errorf(
				"protocol %s: transition %d starts from undeclared state %s",
				s.Name, i, from)
		}

		for _, on := range t.On {
			if !events[on] {
				return fmt.Errorf(
					"protocol %s: transition %d uses undeclared event %s",
					s.Name, i, on)
			}

			key := tableKey{from, on}
			if prev, dup := seen[key]; dup {
				return fmt.Errorf(
					"protocol %s: (%s, %s) is defined by transitions %d and %d",
					s.Name, from, on, prev, i)
			}

			seen[key] = i
		}
	}

	return nil
}

// MOESISpec returns the MOESI protocol that the caches follow.
func MOESISpec() ProtocolSpec {
	valid := []State{Shared, Exclusive, Modified, Owned}

	return ProtocolSpec{
		Name:         "MOESI",
		DefaultState: Invalid,
		States:       AllStates(),
		Events: []Event{
			ReadHit, WriteHitUpgraded,
			FillFromMemory, FillFromCache, FillForWrite,
			SnoopRead, SnoopInvalidate, Evict,
		},
		Transitions: []Transition{
			{From: []State{Shared}, On: []Event{ReadHit}, To: Shared},
			{From: []State{Exclusive}, On: []Event{ReadHit}, To: Exclusive},
			{From: []State{Modified}, On: []Event{ReadHit}, To: Modified},
			{From: []State{Owned}, On: []Event{ReadHit}, To: Owned},

			{From: valid, On: []Event{WriteHitUpgraded}, To: Modified},

			{From: []State{Invalid}, On: []Event{FillFromMemory}, To: Exclusive},
			{From: []State{Invalid}, On: []Event{FillFromCache}, To: Shared},
			{From: []State{Invalid}, On: []Event{FillForWrite}, To: Modified},

			{From: []State{Invalid}, On: []Event{SnoopRead}, To: Invalid},
			{
				From:    []State{Shared, Exclusive},
				On:      []Event{SnoopRead},
				To:      Shared,
				Actions: []Action{SupplyData},
			},
			{
				From:    []State{Modified, Owned},
				On:      []Event{SnoopRead},
				To:      Owned,
				Actions: []Action{SupplyData},
			},

			{
				From: []State{Invalid, Shared, Exclusive},
				On:   []Event{SnoopInvalidate, Evict},
				To:   Invalid,
			},
			{
				From:    []State{Modified, Owned},
				On:      []Event{SnoopInvalidate, Evict},
				To:      Invalid,
				Actions: []Action{WriteBack},
			},
		},
	}
}
