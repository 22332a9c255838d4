// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package exclusion filters candidates down to ads allowed to be
// considered at all, independent of pacing randomness. The rule set is
// closed and evaluated in a fixed order; order only affects which reason
// is logged, not the resulting set.
package exclusion

import (
	"time"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/history"
	"github.com/adxyz/adserve/pkg/log"
)

// Config toggles the optional rules.
type Config struct {
	// DailyCapDefault applies when a creative does not carry its own
	// daily cap. Zero means no default cap.
	DailyCapDefault int

	// SameAdvertiserExclusionEnabled turns on the anti-fatigue rule that
	// skips a candidate when the last served ad came from the same
	// advertiser.
	SameAdvertiserExclusionEnabled bool
}

// Context bundles everything the rules read for one serving attempt.
type Context struct {
	Snapshot        *Snapshot
	Now             time.Time
	AdType          ads.AdType
	CountryCode     string
	SubdivisionCode string
	Config          Config
}

// Rule decides whether a single candidate is excluded. Rules are pure:
// they read the candidate and the attempt context, nothing else.
type Rule struct {
	Name     string
	Excludes func(c *ads.CreativeAd, ctx *Context) bool
}

// DefaultRules returns the rule set in evaluation order.
func DefaultRules() []Rule {
	return []Rule{
		{"validity_window", excludeOutsideValidityWindow},
		{"daily_cap", excludeDailyCap},
		{"per_day_cap", excludePerDayCap},
		{"per_week_cap", excludePerWeekCap},
		{"per_month_cap", excludePerMonthCap},
		{"total_max", excludeTotalMax},
		{"dismissed", excludeDismissed},
		{"converted", excludeConverted},
		{"same_advertiser", excludeSameAdvertiser},
		{"daypart", excludeDaypartMismatch},
		{"geo", excludeGeoMismatch},
	}
}

// Apply returns a new candidate sequence holding only candidates no rule
// excludes. Evaluation short-circuits per candidate on the first
// exclusion.
func Apply(candidates []ads.CreativeAd, rules []Rule, ctx *Context, logger log.Logger) []ads.CreativeAd {
	out := make([]ads.CreativeAd, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		excluded := false
		for _, rule := range rules {
			if rule.Excludes(c, ctx) {
				logger.Debug("candidate excluded",
					"creative_instance_id", c.CreativeInstanceID,
					"rule", rule.Name)
				excluded = true
				break
			}
		}
		if !excluded {
			out = append(out, *c)
		}
	}
	return out
}

func excludeOutsideValidityWindow(c *ads.CreativeAd, ctx *Context) bool {
	return ctx.Now.Before(c.StartAt) || ctx.Now.After(c.EndAt)
}

// Cap rules count against rolling windows, never calendar-aligned ones, so
// caps do not predictably reset at midnight.

func excludeDailyCap(c *ads.CreativeAd, ctx *Context) bool {
	if !ctx.AdType.IsFrequencyCapped() {
		return false
	}
	limit := c.DailyCap
	if limit == 0 {
		limit = ctx.Config.DailyCapDefault
	}
	if limit == 0 {
		return false
	}
	count := ctx.Snapshot.CountServed(
		history.Scope{CreativeSetID: c.CreativeSetID},
		history.LastDuration(ctx.Now, 24*time.Hour))
	return count >= limit
}

func excludePerDayCap(c *ads.CreativeAd, ctx *Context) bool {
	return excludeRollingCap(c, ctx, c.PerDay, 24*time.Hour)
}

func excludePerWeekCap(c *ads.CreativeAd, ctx *Context) bool {
	return excludeRollingCap(c, ctx, c.PerWeek, 7*24*time.Hour)
}

func excludePerMonthCap(c *ads.CreativeAd, ctx *Context) bool {
	return excludeRollingCap(c, ctx, c.PerMonth, 30*24*time.Hour)
}

func excludeRollingCap(c *ads.CreativeAd, ctx *Context, limit int, window time.Duration) bool {
	if !ctx.AdType.IsFrequencyCapped() || limit == 0 {
		return false
	}
	count := ctx.Snapshot.CountServed(
		history.Scope{CreativeSetID: c.CreativeSetID},
		history.LastDuration(ctx.Now, window))
	return count >= limit
}

func excludeTotalMax(c *ads.CreativeAd, ctx *Context) bool {
	if !ctx.AdType.IsFrequencyCapped() || c.TotalMax == 0 {
		return false
	}
	count := ctx.Snapshot.CountServed(
		history.Scope{CreativeInstanceID: c.CreativeInstanceID},
		history.Window{})
	return count >= c.TotalMax
}

func excludeDismissed(c *ads.CreativeAd, ctx *Context) bool {
	return ctx.Snapshot.HasEvent(c.CreativeInstanceID, ads.ConfirmationDismissed)
}

func excludeConverted(c *ads.CreativeAd, ctx *Context) bool {
	return ctx.Snapshot.HasEvent(c.CreativeInstanceID, ads.ConfirmationConverted)
}

func excludeSameAdvertiser(c *ads.CreativeAd, ctx *Context) bool {
	if !ctx.Config.SameAdvertiserExclusionEnabled {
		return false
	}
	last := ctx.Snapshot.LastServed()
	return last != nil && last.AdvertiserID == c.AdvertiserID
}

func excludeDaypartMismatch(c *ads.CreativeAd, ctx *Context) bool {
	if len(c.Dayparts) == 0 {
		return false
	}
	for _, d := range c.Dayparts {
		if d.Covers(ctx.Now) {
			return false
		}
	}
	return true
}

// excludeGeoMismatch excludes a candidate whose geo targets cover neither
// the resolved country nor subdivision. Empty geo targets mean all
// regions, not none.
func excludeGeoMismatch(c *ads.CreativeAd, ctx *Context) bool {
	if len(c.GeoTargets) == 0 {
		return false
	}
	for _, target := range c.GeoTargets {
		if target == ctx.CountryCode || target == ctx.SubdivisionCode {
			return false
		}
	}
	return true
}
