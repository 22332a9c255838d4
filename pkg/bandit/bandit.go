// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bandit keeps per-segment reward estimates with an epsilon-greedy
// update policy. The table is best-effort learning state, not a ledger:
// losing an update on crash is an acceptable degradation.
package bandit

import (
	"context"
	"sort"
	"sync"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/log"
	"github.com/adxyz/adserve/pkg/random"
)

// Arm is the reward estimate for one segment.
type Arm struct {
	PullCount     int
	ValueEstimate float64
}

// StateStore persists the arm table across restarts. Saves are
// best-effort; Load is called once at construction.
type StateStore interface {
	Load(ctx context.Context) (map[string]Arm, error)
	Save(ctx context.Context, segment string, arm Arm) error
}

// EpsilonGreedy maintains the per-segment arm table. All mutation goes
// through Process behind a single mutex.
type EpsilonGreedy struct {
	mu      sync.RWMutex
	arms    map[string]Arm
	epsilon float64
	rand    random.Source
	store   StateStore
	log     log.Logger
}

// New creates a bandit. A nil store disables persistence. Epsilon is the
// exploration probability.
func New(epsilon float64, rand random.Source, store StateStore, logger log.Logger) *EpsilonGreedy {
	b := &EpsilonGreedy{
		arms:    make(map[string]Arm),
		epsilon: epsilon,
		rand:    rand,
		store:   store,
		log:     logger,
	}
	if store != nil {
		arms, err := store.Load(context.Background())
		if err != nil {
			logger.Warn("bandit state load failed, starting cold", "error", err)
		} else {
			b.arms = arms
		}
	}
	return b
}

// Process folds one feedback event into the table. With probability
// epsilon a random known segment is updated instead of the fed-back one.
func (b *EpsilonGreedy) Process(feedback ads.BanditFeedback) {
	if feedback.Segment == "" {
		return
	}

	b.mu.Lock()
	segment := feedback.Segment
	if b.rand.NextUniform() < b.epsilon {
		if explored := b.randomSegmentLocked(); explored != "" {
			segment = explored
		}
	}

	arm := b.arms[segment]
	reward := feedback.Reward()
	arm.ValueEstimate += (reward - arm.ValueEstimate) / float64(arm.PullCount+1)
	arm.PullCount++
	b.arms[segment] = arm
	b.mu.Unlock()

	b.log.Debug("bandit updated",
		"segment", segment,
		"pulls", arm.PullCount,
		"estimate", arm.ValueEstimate)

	if b.store != nil {
		if err := b.store.Save(context.Background(), segment, arm); err != nil {
			b.log.Warn("bandit state save failed", "segment", segment, "error", err)
		}
	}
}

// GetArmValue returns the value estimate for a segment, 0.0 for segments
// never observed.
func (b *EpsilonGreedy) GetArmValue(segment string) float64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.arms[segment].ValueEstimate
}

// Segments returns the observed segments in sorted order.
func (b *EpsilonGreedy) Segments() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	out := make([]string, 0, len(b.arms))
	for segment := range b.arms {
		out = append(out, segment)
	}
	sort.Strings(out)
	return out
}

// randomSegmentLocked picks a uniformly random known segment. Iteration
// order over the map is not uniform, so draw against the sorted list.
func (b *EpsilonGreedy) randomSegmentLocked() string {
	if len(b.arms) == 0 {
		return ""
	}
	segments := make([]string, 0, len(b.arms))
	for segment := range b.arms {
		segments = append(segments, segment)
	}
	sort.Strings(segments)
	idx := int(b.rand.NextUniform() * float64(len(segments)))
	if idx >= len(segments) {
		idx = len(segments) - 1
	}
	return segments[idx]
}
