// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package sampler turns candidate scores into a probability distribution
// and draws one winner.
package sampler

import (
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/random"
)

// ComputeProbabilities normalizes scores into a distribution summing to 1.
// When every score is exactly zero the distribution is uniform: zero
// relevance across the board still serves an ad rather than none.
func ComputeProbabilities(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	sum := 0.0
	for _, s := range scores {
		sum += s
	}

	probabilities := make([]float64, len(scores))
	if sum == 0 {
		uniform := 1.0 / float64(len(scores))
		for i := range probabilities {
			probabilities[i] = uniform
		}
		return probabilities
	}

	for i, s := range scores {
		probabilities[i] = s / sum
	}
	return probabilities
}

// Sample draws one candidate by inverse-transform sampling over the
// cumulative distribution with a single uniform draw. Ties break toward
// the earlier candidate. Returns nil only for an empty candidate list.
func Sample(candidates []ads.CreativeAd, probabilities []float64, rand random.Source) *ads.CreativeAd {
	if len(candidates) == 0 || len(candidates) != len(probabilities) {
		return nil
	}

	draw := rand.NextUniform()
	cumulative := 0.0
	for i := range candidates {
		cumulative += probabilities[i]
		if draw < cumulative {
			out := candidates[i]
			return &out
		}
	}

	// Floating-point shortfall in the cumulative sum: fall back to the
	// last candidate.
	out := candidates[len(candidates)-1]
	return &out
}
