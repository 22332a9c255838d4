// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package sampler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adserve/internal/adstest"
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/random"
)

func TestComputeProbabilitiesNormalizes(t *testing.T) {
	require := require.New(t)

	probabilities := ComputeProbabilities([]float64{1, 3, 4, 2})
	require.Len(probabilities, 4)

	sum := 0.0
	for _, p := range probabilities {
		sum += p
	}
	require.InDelta(1.0, sum, 1e-9)
	require.InDelta(0.1, probabilities[0], 1e-9)
	require.InDelta(0.3, probabilities[1], 1e-9)
}

func TestComputeProbabilitiesAllZeroFallsBackToUniform(t *testing.T) {
	require := require.New(t)

	probabilities := ComputeProbabilities([]float64{0, 0, 0, 0})
	require.Len(probabilities, 4)
	for _, p := range probabilities {
		require.InDelta(0.25, p, 1e-9)
	}
}

func TestComputeProbabilitiesEmpty(t *testing.T) {
	require := require.New(t)
	require.Nil(ComputeProbabilities(nil))
}

func TestSampleInverseTransform(t *testing.T) {
	require := require.New(t)

	candidates := []ads.CreativeAd{
		adstest.NewCreative(),
		adstest.NewCreative(),
		adstest.NewCreative(),
	}
	probabilities := []float64{0.2, 0.5, 0.3}

	// Cumulative boundaries are 0.2 and 0.7.
	picked := Sample(candidates, probabilities, random.Fixed(0.1))
	require.Equal(candidates[0].CreativeInstanceID, picked.CreativeInstanceID)

	picked = Sample(candidates, probabilities, random.Fixed(0.2))
	require.Equal(candidates[1].CreativeInstanceID, picked.CreativeInstanceID)

	picked = Sample(candidates, probabilities, random.Fixed(0.69))
	require.Equal(candidates[1].CreativeInstanceID, picked.CreativeInstanceID)

	picked = Sample(candidates, probabilities, random.Fixed(0.99))
	require.Equal(candidates[2].CreativeInstanceID, picked.CreativeInstanceID)
}

func TestSampleEmptyReturnsNil(t *testing.T) {
	require := require.New(t)
	require.Nil(Sample(nil, nil, random.Fixed(0.5)))
}

func TestSampleZeroScoreCandidateRemainsSamplable(t *testing.T) {
	require := require.New(t)

	candidates := []ads.CreativeAd{adstest.NewCreative(), adstest.NewCreative()}
	probabilities := ComputeProbabilities([]float64{0, 0})

	picked := Sample(candidates, probabilities, random.Fixed(0.75))
	require.NotNil(picked)
	require.Equal(candidates[1].CreativeInstanceID, picked.CreativeInstanceID)
}
