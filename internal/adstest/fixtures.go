// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package adstest provides fixture builders shared by the engine tests.
package adstest

import (
	"time"

	"github.com/google/uuid"

	"github.com/adxyz/adserve/pkg/ads"
)

// Now is the pinned instant tests freeze their clocks to.
var Now = time.Date(2025, time.June, 17, 12, 0, 0, 0, time.UTC)

// CreativeOption mutates a fixture creative.
type CreativeOption func(*ads.CreativeAd)

// NewCreative builds a valid candidate active around Now.
func NewCreative(opts ...CreativeOption) ads.CreativeAd {
	c := ads.CreativeAd{
		CreativeInstanceID: uuid.NewString(),
		CreativeSetID:      uuid.NewString(),
		CampaignID:         uuid.NewString(),
		AdvertiserID:       uuid.NewString(),
		StartAt:            Now.Add(-24 * time.Hour),
		EndAt:              Now.Add(24 * time.Hour),
		Priority:           1,
		PassThroughRate:    1.0,
		Segment:            "technology & computing",
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func WithInstanceID(id string) CreativeOption {
	return func(c *ads.CreativeAd) { c.CreativeInstanceID = id }
}

func WithSetID(id string) CreativeOption {
	return func(c *ads.CreativeAd) { c.CreativeSetID = id }
}

func WithAdvertiserID(id string) CreativeOption {
	return func(c *ads.CreativeAd) { c.AdvertiserID = id }
}

func WithSegment(segment string) CreativeOption {
	return func(c *ads.CreativeAd) { c.Segment = segment }
}

func WithWindow(start, end time.Time) CreativeOption {
	return func(c *ads.CreativeAd) {
		c.StartAt = start
		c.EndAt = end
	}
}

func WithDailyCap(n int) CreativeOption {
	return func(c *ads.CreativeAd) { c.DailyCap = n }
}

func WithTotalMax(n int) CreativeOption {
	return func(c *ads.CreativeAd) { c.TotalMax = n }
}

func WithPriority(priority int, passThroughRate float64) CreativeOption {
	return func(c *ads.CreativeAd) {
		c.Priority = priority
		c.PassThroughRate = passThroughRate
	}
}

func WithGeoTargets(targets ...string) CreativeOption {
	return func(c *ads.CreativeAd) { c.GeoTargets = targets }
}

func WithDayparts(dayparts ...ads.Daypart) CreativeOption {
	return func(c *ads.CreativeAd) { c.Dayparts = dayparts }
}

// ServedEvent builds a served event for the creative at the given time.
func ServedEvent(c ads.CreativeAd, adType ads.AdType, at time.Time) ads.AdEvent {
	return ads.NewAdEvent(uuid.NewString(), &c, adType, ads.ConfirmationServed, at)
}

// Event builds an arbitrary lifecycle event for the creative.
func Event(c ads.CreativeAd, adType ads.AdType, confirmation ads.ConfirmationType, at time.Time) ads.AdEvent {
	return ads.NewAdEvent(uuid.NewString(), &c, adType, confirmation, at)
}

// OptedIn returns an opt-in map covering the given ad types.
func OptedIn(adTypes ...ads.AdType) map[ads.AdType]bool {
	m := make(map[ads.AdType]bool, len(adTypes))
	for _, t := range adTypes {
		m[t] = true
	}
	return m
}
