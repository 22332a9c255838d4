// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ads

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidCandidate = errors.New("invalid candidate data")

// AdType identifies the surface an ad is served on.
type AdType string

const (
	AdTypeNotification    AdType = "ad_notification"
	AdTypeNewTabPage      AdType = "new_tab_page_ad"
	AdTypeInlineContent   AdType = "inline_content_ad"
	AdTypePromotedContent AdType = "promoted_content_ad"
	AdTypeSearchResult    AdType = "search_result_ad"
)

// frequencyCapped declares which ad types are subject to frequency capping.
// Uncapped types skip the cap exclusion rules entirely.
var frequencyCapped = map[AdType]bool{
	AdTypeNotification:    true,
	AdTypeInlineContent:   true,
	AdTypeSearchResult:    true,
	AdTypeNewTabPage:      false,
	AdTypePromotedContent: false,
}

// IsFrequencyCapped reports whether frequency caps apply to the ad type.
func (t AdType) IsFrequencyCapped() bool {
	return frequencyCapped[t]
}

// ConfirmationType is the kind of ad lifecycle event.
type ConfirmationType string

const (
	ConfirmationServed    ConfirmationType = "served"
	ConfirmationViewed    ConfirmationType = "viewed"
	ConfirmationClicked   ConfirmationType = "clicked"
	ConfirmationDismissed ConfirmationType = "dismissed"
	ConfirmationLanded    ConfirmationType = "landed"
	ConfirmationConverted ConfirmationType = "converted"
)

// Daypart is a recurring weekly window during which an ad may serve.
// DaysOfWeek is a bitmask with bit 0 = Sunday through bit 6 = Saturday.
type Daypart struct {
	DaysOfWeek  uint8
	StartMinute int
	EndMinute   int
}

// Covers reports whether the daypart covers the given local time.
func (d Daypart) Covers(t time.Time) bool {
	if d.DaysOfWeek&(1<<uint8(t.Weekday())) == 0 {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= d.StartMinute && minute <= d.EndMinute
}

// CreativeAd is a candidate ad from the catalog.
type CreativeAd struct {
	CreativeInstanceID string
	CreativeSetID      string
	CampaignID         string
	AdvertiserID       string
	StartAt            time.Time
	EndAt              time.Time
	DailyCap           int
	PerDay             int
	PerWeek            int
	PerMonth           int
	TotalMax           int
	Priority           int

	// PassThroughRate is the pacing admission probability in [0, 1].
	// Zero means the catalog did not set one and 1/Priority applies.
	PassThroughRate float64

	Segment    string
	GeoTargets []string
	Dayparts   []Daypart
}

// Validate checks the candidate's own invariants. Candidates failing
// validation are skipped by the pipeline, never served.
func (c *CreativeAd) Validate() error {
	if c.CreativeInstanceID == "" {
		return fmt.Errorf("%w: missing creative instance id", ErrInvalidCandidate)
	}
	if c.EndAt.Before(c.StartAt) {
		return fmt.Errorf("%w: start_at after end_at for %s", ErrInvalidCandidate, c.CreativeInstanceID)
	}
	if c.Priority < 1 {
		return fmt.Errorf("%w: priority %d for %s", ErrInvalidCandidate, c.Priority, c.CreativeInstanceID)
	}
	if c.PassThroughRate < 0 || c.PassThroughRate > 1 {
		return fmt.Errorf("%w: pass through rate %f for %s", ErrInvalidCandidate, c.PassThroughRate, c.CreativeInstanceID)
	}
	return nil
}

// UserModel carries the targeting signals scoring reads. All fields are
// optional; a missing signal contributes zero to the score.
type UserModel struct {
	IntentSegments   []string
	InterestSegments []string

	// AdLastSeenAt maps creative instance IDs to the last time the user
	// saw them, used for recency decay.
	AdLastSeenAt map[string]time.Time
}

// HasIntentSegment reports whether the segment is among the user's
// purchase-intent signals.
func (m *UserModel) HasIntentSegment(segment string) bool {
	return containsSegment(m.IntentSegments, segment)
}

// HasInterestSegment reports whether the segment is among the user's
// latent-interest signals.
func (m *UserModel) HasInterestSegment(segment string) bool {
	return containsSegment(m.InterestSegments, segment)
}

func containsSegment(segments []string, segment string) bool {
	for _, s := range segments {
		if s == segment {
			return true
		}
	}
	return false
}
