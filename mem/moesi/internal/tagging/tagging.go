// Package tagging keeps the lines of a set-associative cache and their
// recency ranking.
package tagging

import (
	"fmt"
	"log"

	"github.com/sarchlab/moesisim/mem/moesi"
)

// A Line is one way of a set.
type Line struct {
	Tag    uint64
	HasTag bool
	State  moesi.State
	Data   []byte

	SetID int
	WayID int

	// Rank is 0 for the most recently used line and Associativity-1 for the
	// least recently used one.
	Rank int
}

// A Set is a list of lines where a certain piece of memory can be stored.
type Set struct {
	ID    int
	Lines []*Line
}

func newSet(id, associativity int, lineBytes uint64) *Set {
	s := &Set{ID: id}

	for way := 0; way < associativity; way++ {
		s.Lines = append(s.Lines, &Line{
			State: moesi.Invalid,
			Data:  make([]byte, lineBytes),
			SetID: id,
			WayID: way,
			Rank:  way,
		})
	}

	return s
}

// Lookup finds the valid line that holds the tag.
func (s *Set) Lookup(tag uint64) (*Line, bool) {
	for _, l := range s.Lines {
		if l.State.IsValid() && l.HasTag && l.Tag == tag {
			return l, true
		}
	}

	return nil, false
}

// Victim returns the least recently used line.
func (s *Set) Victim() *Line {
	last := len(s.Lines) - 1
	for _, l := range s.Lines {
		if l.Rank == last {
			return l
		}
	}

	log.Panicf("set %d has no line ranked %d, ranks are %v",
		s.ID, last, s.ranks())

	return nil
}

// Touch makes the line the most recently used one. Lines that were more
// recent than it become one step older.
func (s *Set) Touch(line *Line) {
	s.wayMustBeInRange(line.WayID)

	if s.Lines[line.WayID] != line {
		log.Panicf("way %d of set %d is not the touched line",
			line.WayID, s.ID)
	}

	old := line.Rank
	for _, l := range s.Lines {
		if l.Rank < old {
			l.Rank++
		}
	}

	line.Rank = 0
}

// Way returns a line by its way index.
func (s *Set) Way(way int) *Line {
	s.wayMustBeInRange(way)
	return s.Lines[way]
}

func (s *Set) wayMustBeInRange(way int) {
	if way < 0 || way >= len(s.Lines) {
		log.Panicf("way %d is out of range, set %d has %d ways",
			way, s.ID, len(s.Lines))
	}
}

// RanksArePermutation checks that the ranks are 0 to Associativity-1, each
// used once.
func (s *Set) RanksArePermutation() bool {
	seen := make([]bool, len(s.Lines))

	for _, l := range s.Lines {
		if l.Rank < 0 || l.Rank >= len(s.Lines) || seen[l.Rank] {
			return false
		}

		seen[l.Rank] = true
	}

	return true
}

func (s *Set) ranks() []int {
	r := make([]int, len(s.Lines))
	for i, l := range s.Lines {
		r[i] = l.Rank
	}

	return r
}

// Directory holds all the sets of a cache.
type Directory struct {
	geometry moesi.Geometry
	sets     []*Set
}

// NewDirectory creates a directory where every line is invalid.
func NewDirectory(g moesi.Geometry) *Directory {
	if err := g.Validate(); err != nil {
		panic(err)
	}

	d := &Directory{geometry: g}
	d.Reset()

	return d
}

// Reset invalidates all the lines and restores the initial ranking.
func (d *Directory) Reset() {
	d.sets = make([]*Set, d.geometry.NumSets)
	for i := range d.sets {
		d.sets[i] = newSet(i, d.geometry.Associativity, d.geometry.LineBytes)
	}
}

// Geometry returns the shape of the directory.
func (d *Directory) Geometry() moesi.Geometry {
	return d.geometry
}

// NumSets returns the number of sets.
func (d *Directory) NumSets() int {
	return len(d.sets)
}

// Set returns a set by index.
func (d *Directory) Set(i uint64) *Set {
	if i >= uint64(len(d.sets)) {
		log.Panicf("set index %d is out of range, there are %d sets",
			i, len(d.sets))
	}

	return d.sets[i]
}

// Lookup finds the valid line that holds a decoded address.
func (d *Directory) Lookup(addr moesi.Address) (*Line, bool) {
	return d.Set(addr.SetIndex).Lookup(addr.Tag)
}

// LineAddress returns the address of the first byte that a line holds.
func (d *Directory) LineAddress(l *Line) uint64 {
	return d.geometry.LineAddress(l.Tag, uint64(l.SetID))
}

// CheckConsistency returns an error describing the first broken set. A set is
// broken if its ranking is not a permutation or if two valid lines hold the
// same tag.
func (d *Directory) CheckConsistency() error {
	for _, s := range d.sets {
		if !s.RanksArePermutation() {
			return fmt.Errorf("set %d: ranks %v are not a permutation",
				s.ID, s.ranks())
		}

		tags := make(map[uint64]int)
		for _, l := range s.Lines {
			if !l.State.IsValid() {
				continue
			}

			if way, dup := tags[l.Tag]; dup {
				return fmt.Errorf("set %d: ways %d and %d both hold tag %d",
					s.ID, way, l.WayID, l.Tag)
			}

			tags[l.Tag] = l.WayID
		}
	}

	return nil
}

// MustBeConsistent panics if CheckConsistency fails.
func (d *Directory) MustBeConsistent() {
	if err := d.CheckConsistency(); err != nil {
		panic(err)
	}
}
