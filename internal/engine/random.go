package engine

import (
	"math/rand/v2"
)

// Rand is the random source the simulation draws from.
// Values must be uniform in [0, 1).
type Rand interface {
	Float64() float64
}

// NewRand returns a seeded PCG source. Not safe for concurrent use; the Board
// only touches it while holding its state lock.
func NewRand(seed uint64) Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// SequenceRand replays a fixed list of draws, wrapping around at the end.
// Used to force exact ticks in tests and replays.
type SequenceRand struct {
	values []float64
	next   int
}

// NewSequenceRand creates a SequenceRand over values. It panics on an empty list.
func NewSequenceRand(values ...float64) *SequenceRand {
	if len(values) == 0 {
		panic("engine: SequenceRand needs at least one value")
	}
	return &SequenceRand{values: values}
}

// Float64 returns the next value in the sequence.
func (s *SequenceRand) Float64() float64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Draws reports how many values have been consumed.
func (s *SequenceRand) Draws() int {
	return s.next
}
