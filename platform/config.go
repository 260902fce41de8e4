// Package platform builds a complete shared-bus multiprocessor from a
// configuration and runs a trace on it.
package platform

import (
	"errors"
	"fmt"

	"github.com/sarchlab/moesisim/mem/moesi"
	"github.com/sarchlab/moesisim/processor"
	"github.com/sarchlab/moesisim/sim"
)

// Config describes the system to build.
type Config struct {
	NumCPUs       int
	LineBytes     uint64
	NumSets       uint64
	Associativity int

	CacheLatency  int
	MemoryLatency int

	CacheBufferSize  int
	MemoryBufferSize int

	// BusBufferSize is derived from the number of processors when zero.
	BusBufferSize int

	// CycleLimit stops a run that has not finished by then. Zero means no
	// limit.
	CycleLimit sim.VTimeInCycle
}

// DefaultConfig returns a system with one processor and 32 KiB 8-way caches.
func DefaultConfig() Config {
	return Config{
		NumCPUs:          1,
		LineBytes:        32,
		NumSets:          128,
		Associativity:    8,
		CacheLatency:     1,
		MemoryLatency:    100,
		CacheBufferSize:  4,
		MemoryBufferSize: 16,
	}
}

// Validate checks that the configuration describes a system that can be
// built.
func (c Config) Validate() error {
	if _, err := c.Geometry(); err != nil {
		return fmt.Errorf("invalid cache geometry: %w", err)
	}

	if c.NumCPUs < 1 {
		return fmt.Errorf("number of processors %d is less than 1", c.NumCPUs)
	}

	if c.NumCPUs > processor.MaxCPUs {
		return fmt.Errorf("number of processors %d is more than %d",
			c.NumCPUs, processor.MaxCPUs)
	}

	if c.CacheLatency < 0 || c.MemoryLatency < 0 {
		return errors.New("latencies must not be negative")
	}

	if c.CacheBufferSize < 1 || c.MemoryBufferSize < 1 {
		return errors.New("buffer sizes must be at least 1")
	}

	if c.BusBufferSize != 0 && c.BusBufferSize <= c.NumCPUs {
		return fmt.Errorf("bus buffer size %d must be larger than %d",
			c.BusBufferSize, c.NumCPUs)
	}

	return nil
}

// Geometry returns the shape of every cache.
func (c Config) Geometry() (moesi.Geometry, error) {
	return moesi.NewGeometry(c.LineBytes, c.NumSets, c.Associativity)
}

func (c Config) busBufferSize() int {
	if c.BusBufferSize != 0 {
		return c.BusBufferSize
	}

	return c.NumCPUs + 4
}
