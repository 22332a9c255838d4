// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package history stores the ad event log consumed by permission and
// exclusion rules. Events are append-only; the retention sweep is the
// only delete path.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/adxyz/adserve/pkg/ads"
)

// ErrStorageUnavailable is returned when the backing store cannot be
// reached. Callers must treat it as an error, never as empty history:
// under-counting caps would allow over-serving.
var ErrStorageUnavailable = errors.New("ad event store unavailable")

// Scope filters a history query. Zero-valued fields do not filter.
type Scope struct {
	CreativeInstanceID string
	CreativeSetID      string
	CampaignID         string
	AdvertiserID       string
	AdType             ads.AdType
}

// Window bounds a query in time. A zero Since means unbounded past; a zero
// Until means up to now.
type Window struct {
	Since time.Time
	Until time.Time
}

// LastDuration returns a rolling window covering the trailing d before now.
func LastDuration(now time.Time, d time.Duration) Window {
	return Window{Since: now.Add(-d), Until: now}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && t.After(w.Until) {
		return false
	}
	return true
}

// Matches reports whether the event satisfies every set scope field.
func (s Scope) Matches(e *ads.AdEvent) bool {
	if s.CreativeInstanceID != "" && e.CreativeInstanceID != s.CreativeInstanceID {
		return false
	}
	if s.CreativeSetID != "" && e.CreativeSetID != s.CreativeSetID {
		return false
	}
	if s.CampaignID != "" && e.CampaignID != s.CampaignID {
		return false
	}
	if s.AdvertiserID != "" && e.AdvertiserID != s.AdvertiserID {
		return false
	}
	if s.AdType != "" && e.AdType != s.AdType {
		return false
	}
	return true
}

// Store is the query and append surface over the ad event log.
type Store interface {
	// Append records an event. At-most-once per confirmation; the caller
	// decides whether an append failure is fatal.
	Append(ctx context.Context, event ads.AdEvent) error

	// Query returns the events matching scope inside window, newest last.
	Query(ctx context.Context, scope Scope, window Window) ([]ads.AdEvent, error)

	// CountEventsOfType counts events of the given confirmation type
	// matching scope inside window.
	CountEventsOfType(ctx context.Context, confirmation ads.ConfirmationType, scope Scope, window Window) (int, error)

	// LastServed returns the most recent served event for the ad type, or
	// nil when none exists.
	LastServed(ctx context.Context, adType ads.AdType) (*ads.AdEvent, error)

	// PurgeExpired removes events created before cutoff and reports how
	// many were removed.
	PurgeExpired(ctx context.Context, cutoff time.Time) (int, error)
}
