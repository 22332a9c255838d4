// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package predictor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adserve/internal/adstest"
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/clock"
)

type fixedArms map[string]float64

func (a fixedArms) GetArmValue(segment string) float64 { return a[segment] }

func TestScoreWeightedSum(t *testing.T) {
	require := require.New(t)

	weights := Weights{
		IntentSegment:   2.0,
		InterestSegment: 1.0,
		BanditArm:       0.5,
		LastSeenDecay:   0,
	}
	scorer := NewScorer(weights, fixedArms{"sports": 0.8}, clock.Frozen(adstest.Now), 0)

	c := adstest.NewCreative(adstest.WithSegment("sports"))
	model := &ads.UserModel{
		IntentSegments:   []string{"sports"},
		InterestSegments: []string{"sports"},
	}

	// 2.0 + 1.0 + 0.5*0.8
	require.InDelta(3.4, scorer.Score(&c, model), 1e-9)
}

func TestScoreMissingSignalsContributeZero(t *testing.T) {
	require := require.New(t)

	scorer := NewScorer(DefaultWeights(), nil, clock.Frozen(adstest.Now), 0)
	c := adstest.NewCreative(adstest.WithSegment("sports"))

	// Model without matches: only the last-seen signal (never seen = 1)
	// contributes, weighted 0.5.
	model := &ads.UserModel{}
	require.InDelta(0.5, scorer.Score(&c, model), 1e-9)

	// Nil model contributes nothing at all.
	require.Equal(0.0, scorer.Score(&c, nil))
}

func TestZeroScoreRemainsValid(t *testing.T) {
	require := require.New(t)

	scorer := NewScorer(Weights{}, nil, clock.Frozen(adstest.Now), 0)
	c := adstest.NewCreative()
	require.Equal(0.0, scorer.Score(&c, &ads.UserModel{}))
}

func TestLastSeenRecencyDecay(t *testing.T) {
	require := require.New(t)

	weights := Weights{LastSeenDecay: 1.0}
	scorer := NewScorer(weights, nil, clock.Frozen(adstest.Now), 48*time.Hour)
	c := adstest.NewCreative()

	// Seen just now: fully suppressed.
	model := &ads.UserModel{AdLastSeenAt: map[string]time.Time{
		c.CreativeInstanceID: adstest.Now,
	}}
	require.InDelta(0.0, scorer.Score(&c, model), 1e-9)

	// Seen 24h ago: halfway recovered.
	model.AdLastSeenAt[c.CreativeInstanceID] = adstest.Now.Add(-24 * time.Hour)
	require.InDelta(0.5, scorer.Score(&c, model), 1e-9)

	// Seen beyond the window: full signal.
	model.AdLastSeenAt[c.CreativeInstanceID] = adstest.Now.Add(-72 * time.Hour)
	require.InDelta(1.0, scorer.Score(&c, model), 1e-9)
}

func TestScoreAllIndexAligned(t *testing.T) {
	require := require.New(t)

	scorer := NewScorer(Weights{IntentSegment: 1}, nil, clock.Frozen(adstest.Now), 0)
	matched := adstest.NewCreative(adstest.WithSegment("sports"))
	unmatched := adstest.NewCreative(adstest.WithSegment("autos"))
	model := &ads.UserModel{IntentSegments: []string{"sports"}}

	scores := scorer.ScoreAll([]ads.CreativeAd{matched, unmatched}, model)
	require.Equal([]float64{1, 0}, scores)
}
