package sim

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// RNG wraps a PCG source that is owned by exactly one simulation run. The
// source is seeded once at construction and never touches the process-global
// generator, so runs with the same seed are bit-for-bit reproducible.
//
// PCGSource supports binary marshaling of its internal state, which is what
// lets Snapshot/Restore capture and replay the exact random stream: a search
// branch that samples N durations and is then restored draws the same N
// values again.
type RNG struct {
	seed uint64
	src  *rand.PCGSource
	rnd  *rand.Rand
}

// NewRNG creates an RNG seeded with the given value.
func NewRNG(seed uint64) *RNG {
	src := &rand.PCGSource{}
	src.Seed(seed)
	return &RNG{seed: seed, src: src, rnd: rand.New(src)}
}

// Seed returns the seed this RNG was created with.
func (r *RNG) Seed() uint64 { return r.seed }

// Source exposes the underlying source for distribution sampling.
func (r *RNG) Source() rand.Source { return r.src }

// Rand returns the derived *rand.Rand for direct draws.
func (r *RNG) Rand() *rand.Rand { return r.rnd }

// MarshalState captures the generator's internal state.
func (r *RNG) MarshalState() ([]byte, error) {
	state, err := r.src.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("marshaling rng state: %w", err)
	}
	return state, nil
}

// RestoreState rewinds the generator to a previously captured state.
func (r *RNG) RestoreState(state []byte) error {
	if err := r.src.UnmarshalBinary(state); err != nil {
		return fmt.Errorf("restoring rng state: %w", err)
	}
	return nil
}
