// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pacing applies probabilistic admission control after exclusion,
// modeling advertiser-purchased delivery pacing.
package pacing

import (
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/log"
	"github.com/adxyz/adserve/pkg/random"
)

// Pacer admits candidates per independent Bernoulli trial on their pass
// through rate. Deterministic given a fixed random.Source.
type Pacer struct {
	enabled bool
	rand    random.Source
	log     log.Logger
}

// New creates a pacer. When enabled is false PaceAds passes every
// candidate through unchanged.
func New(enabled bool, rand random.Source, logger log.Logger) *Pacer {
	return &Pacer{enabled: enabled, rand: rand, log: logger}
}

// PassThroughRate returns the candidate's admission probability. A rate
// the catalog did not set defaults to 1/priority, so priority 1 always
// passes and lower-priority tiers pass proportionally less often.
func PassThroughRate(c *ads.CreativeAd) float64 {
	if c.PassThroughRate > 0 {
		return c.PassThroughRate
	}
	if c.Priority < 1 {
		return 1.0
	}
	return 1.0 / float64(c.Priority)
}

// PaceAds returns a new sequence holding the candidates that passed their
// trial. Trials are independent; any subset may pass.
func (p *Pacer) PaceAds(candidates []ads.CreativeAd) []ads.CreativeAd {
	if !p.enabled {
		return candidates
	}

	out := make([]ads.CreativeAd, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		rate := PassThroughRate(c)
		if r := p.rand.NextUniform(); r >= rate {
			p.log.Debug("candidate paced out",
				"creative_instance_id", c.CreativeInstanceID,
				"pass_through_rate", rate,
				"draw", r)
			continue
		}
		out = append(out, *c)
	}
	return out
}
