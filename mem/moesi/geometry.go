// Package moesi defines the data model shared by the caches, the bus, and the
// memory of a snooping MOESI multiprocessor: line states, address
// decomposition, the coherence transition table, the messages that travel
// between the components, and the statistics they collect.
package moesi

import (
	"fmt"
	"log"
)

// Geometry describes how a cache is organized.
type Geometry struct {
	LineBytes     uint64
	NumSets       uint64
	Associativity int
}

// NewGeometry creates a geometry and checks that it is usable.
func NewGeometry(
	lineBytes, numSets uint64,
	associativity int,
) (Geometry, error) {
	g := Geometry{
		LineBytes:     lineBytes,
		NumSets:       numSets,
		Associativity: associativity,
	}

	if err := g.Validate(); err != nil {
		return Geometry{}, err
	}

	return g, nil
}

// Validate returns an error if the geometry cannot describe a cache.
func (g Geometry) Validate() error {
	if !isPowerOfTwo(g.LineBytes) {
		return fmt.Errorf("line size %d is not a power of two", g.LineBytes)
	}

	if !isPowerOfTwo(g.NumSets) {
		return fmt.Errorf("number of sets %d is not a power of two", g.NumSets)
	}

	if g.Associativity < 1 {
		return fmt.Errorf("associativity %d is less than 1", g.Associativity)
	}

	return nil
}

func isPowerOfTwo(n uint64) bool {
	return n != 0 && n&(n-1) == 0
}

// Address is a decoded memory address.
type Address struct {
	Raw        uint64
	Tag        uint64
	SetIndex   uint64
	ByteOffset uint64
}

func (a Address) String() string {
	return fmt.Sprintf("0x%x(tag=%d,set=%d,offset=%d)",
		a.Raw, a.Tag, a.SetIndex, a.ByteOffset)
}

// Decode splits an address into its tag, set index, and byte offset.
func (g Geometry) Decode(addr uint64) Address {
	a := Address{
		Raw:        addr,
		Tag:        addr / (g.LineBytes * g.NumSets),
		SetIndex:   (addr / g.LineBytes) % g.NumSets,
		ByteOffset: addr % g.LineBytes,
	}

	if a.SetIndex >= g.NumSets {
		log.Panicf("address 0x%x decoded to set %d, but there are only %d sets",
			addr, a.SetIndex, g.NumSets)
	}

	return a
}

// Encode is the inverse of Decode.
func (g Geometry) Encode(tag, setIndex, byteOffset uint64) uint64 {
	if setIndex >= g.NumSets || byteOffset >= g.LineBytes {
		log.Panicf("cannot encode set %d offset %d with %d sets of %d bytes",
			setIndex, byteOffset, g.NumSets, g.LineBytes)
	}

	return (tag*g.NumSets+setIndex)*g.LineBytes + byteOffset
}

// LineAddress returns the address of the first byte of a line.
func (g Geometry) LineAddress(tag, setIndex uint64) uint64 {
	return g.Encode(tag, setIndex, 0)
}
