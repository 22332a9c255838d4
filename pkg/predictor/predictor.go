// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package predictor assigns each surviving candidate a nonnegative
// relevance score from independent signal scorers. A zero score keeps the
// candidate eligible; dropping candidates is exclusion's job.
package predictor

import (
	"time"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/clock"
)

// Weights holds the externally configured weight of each signal. All
// weights must be nonnegative.
type Weights struct {
	IntentSegment   float64
	InterestSegment float64
	BanditArm       float64
	LastSeenDecay   float64
}

// DefaultWeights returns a balanced signal profile. Deployments tune these
// through configuration.
func DefaultWeights() Weights {
	return Weights{
		IntentSegment:   1.0,
		InterestSegment: 1.0,
		BanditArm:       1.0,
		LastSeenDecay:   0.5,
	}
}

// ArmProvider reads per-segment bandit value estimates.
type ArmProvider interface {
	GetArmValue(segment string) float64
}

// Scorer computes predictor scores. A nil arms provider or nil user model
// simply contributes zero for the affected signals.
type Scorer struct {
	weights     Weights
	arms        ArmProvider
	clock       clock.Clock
	decayWindow time.Duration
}

// NewScorer creates a scorer. decayWindow bounds the last-seen recency
// signal; seeing an ad more recently than the window lowers its score.
func NewScorer(weights Weights, arms ArmProvider, clk clock.Clock, decayWindow time.Duration) *Scorer {
	if decayWindow <= 0 {
		decayWindow = 48 * time.Hour
	}
	return &Scorer{weights: weights, arms: arms, clock: clk, decayWindow: decayWindow}
}

// Score returns the weighted sum of the candidate's signal scores.
func (s *Scorer) Score(c *ads.CreativeAd, model *ads.UserModel) float64 {
	score := 0.0
	if model != nil {
		if model.HasIntentSegment(c.Segment) {
			score += s.weights.IntentSegment
		}
		if model.HasInterestSegment(c.Segment) {
			score += s.weights.InterestSegment
		}
		score += s.weights.LastSeenDecay * s.lastSeenSignal(c, model)
	}
	if s.arms != nil {
		score += s.weights.BanditArm * s.arms.GetArmValue(c.Segment)
	}
	return score
}

// ScoreAll returns the scores for a candidate sequence, index-aligned.
func (s *Scorer) ScoreAll(candidates []ads.CreativeAd, model *ads.UserModel) []float64 {
	scores := make([]float64, len(candidates))
	for i := range candidates {
		scores[i] = s.Score(&candidates[i], model)
	}
	return scores
}

// lastSeenSignal is 1 for ads the user has not seen within the decay
// window and ramps linearly from 0 up as the last sighting ages.
func (s *Scorer) lastSeenSignal(c *ads.CreativeAd, model *ads.UserModel) float64 {
	if model.AdLastSeenAt == nil {
		return 1.0
	}
	seenAt, ok := model.AdLastSeenAt[c.CreativeInstanceID]
	if !ok {
		return 1.0
	}
	elapsed := s.clock.Now().Sub(seenAt)
	if elapsed >= s.decayWindow {
		return 1.0
	}
	if elapsed < 0 {
		return 0.0
	}
	return float64(elapsed) / float64(s.decayWindow)
}
