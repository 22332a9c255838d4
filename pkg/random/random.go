// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package random

import (
	"math/rand"
	"sync"
)

// Source supplies uniform random draws in [0, 1). Pacing and sampling draw
// through a Source so tests can substitute a deterministic sequence.
type Source interface {
	NextUniform() float64
}

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Source seeded with seed.
func New(seed int64) Source {
	return &lockedSource{r: rand.New(rand.NewSource(seed))}
}

func (s *lockedSource) NextUniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// FixedSource replays a fixed sequence of draws, cycling when exhausted.
type FixedSource struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// Fixed returns a Source that replays values in order, wrapping around.
// An empty values list always draws 0.
func Fixed(values ...float64) *FixedSource {
	return &FixedSource{values: values}
}

func (s *FixedSource) NextUniform() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
