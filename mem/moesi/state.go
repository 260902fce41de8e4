package moesi

import "fmt"

// State is the coherence state of a cache line.
type State int

// All the MOESI states.
const (
	Invalid State = iota
	Shared
	Exclusive
	Modified
	Owned
)

var stateNames = [...]string{"I", "S", "E", "M", "O"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}

	return stateNames[s]
}

// IsValid returns true if the line holds a usable copy of the data.
func (s State) IsValid() bool {
	return s != Invalid
}

// IsDirty returns true if the line holds data that memory does not have.
func (s State) IsDirty() bool {
	return s == Modified || s == Owned
}

// AllStates lists the states in declaration order.
func AllStates() []State {
	return []State{Invalid, Shared, Exclusive, Modified, Owned}
}
