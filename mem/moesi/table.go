package moesi

import (
	"fmt"
	"log"
)

type tableKey struct {
	state State
	event Event
}

type tableEntry struct {
	next    State
	actions []Action
}

// Table is a compiled ProtocolSpec.
type Table struct {
	name    string
	entries map[tableKey]tableEntry
}

// NewTable validates and compiles a protocol spec.
func NewTable(spec ProtocolSpec) (*Table, error) {
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("invalid protocol: %w", err)
	}

	t := &Table{
		name:    spec.Name,
		entries: make(map[tableKey]tableEntry),
	}

	for _, tr := range spec.Transitions {
		for _, from := range tr.From {
			for _, on := range tr.On {
				t.entries[tableKey{from, on}] = tableEntry{
					next:    tr.To,
					actions: tr.Actions,
				}
			}
		}
	}

	return t, nil
}

// MustNewMOESITable compiles MOESISpec.
func MustNewMOESITable() *Table {
	t, err := NewTable(MOESISpec())
	if err != nil {
		panic(err)
	}

	return t
}

// Defined tells if the table has a transition for the pair.
func (t *Table) Defined(state State, event Event) bool {
	_, ok := t.entries[tableKey{state, event}]
	return ok
}

// Next returns the state after the event and the actions to perform. Asking
// for a pair the protocol does not define is a modeling bug and panics.
func (t *Table) Next(state State, event Event) (State, []Action) {
	e, ok := t.entries[tableKey{state, event}]
	if !ok {
		log.Panicf("%s: event %s is not allowed in state %s",
			t.name, event, state)
	}

	return e.next, e.actions
}

// HasAction tells if an action list contains a given action.
func HasAction(actions []Action, a Action) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}

	return false
}
