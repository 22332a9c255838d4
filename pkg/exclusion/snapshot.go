// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package exclusion

import (
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/history"
)

// Snapshot is the view of ad event history one serving attempt filters
// against. It is taken once per attempt so every rule counts against the
// same events, regardless of concurrent appends.
type Snapshot struct {
	events     []ads.AdEvent
	lastServed *ads.AdEvent
}

// NewSnapshot builds a snapshot from the events fetched for this attempt
// and the most recent served event for the surface.
func NewSnapshot(events []ads.AdEvent, lastServed *ads.AdEvent) *Snapshot {
	return &Snapshot{events: events, lastServed: lastServed}
}

// CountServed counts served events matching scope inside window.
func (s *Snapshot) CountServed(scope history.Scope, window history.Window) int {
	count := 0
	for i := range s.events {
		e := &s.events[i]
		if e.ConfirmationType != ads.ConfirmationServed {
			continue
		}
		if scope.Matches(e) && window.Contains(e.CreatedAt) {
			count++
		}
	}
	return count
}

// HasEvent reports whether any event of the confirmation type exists for
// the creative instance.
func (s *Snapshot) HasEvent(creativeInstanceID string, confirmation ads.ConfirmationType) bool {
	for i := range s.events {
		e := &s.events[i]
		if e.CreativeInstanceID == creativeInstanceID && e.ConfirmationType == confirmation {
			return true
		}
	}
	return false
}

// LastServed returns the most recent served event for the surface, or nil.
func (s *Snapshot) LastServed() *ads.AdEvent {
	return s.lastServed
}
