// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ads

import "time"

// AdEvent is an immutable record of something that happened to a specific
// ad instance. Events are appended once and never mutated; the history
// retention sweep is the only thing that removes them.
type AdEvent struct {
	PlacementID        string
	CreativeInstanceID string
	CreativeSetID      string
	CampaignID         string
	AdvertiserID       string
	Segment            string
	AdType             AdType
	ConfirmationType   ConfirmationType
	CreatedAt          time.Time
}

// NewAdEvent builds the event recorded when a confirmation fires for a
// creative.
func NewAdEvent(placementID string, ad *CreativeAd, adType AdType, confirmation ConfirmationType, at time.Time) AdEvent {
	return AdEvent{
		PlacementID:        placementID,
		CreativeInstanceID: ad.CreativeInstanceID,
		CreativeSetID:      ad.CreativeSetID,
		CampaignID:         ad.CampaignID,
		AdvertiserID:       ad.AdvertiserID,
		Segment:            ad.Segment,
		AdType:             adType,
		ConfirmationType:   confirmation,
		CreatedAt:          at,
	}
}

// BanditFeedback is the transient value passed to the segment bandit after
// an ad interaction.
type BanditFeedback struct {
	Segment   string
	EventType ConfirmationType
}

// Reward maps a confirmation type to a bandit reward, monotonic in
// engagement quality.
func (f BanditFeedback) Reward() float64 {
	switch f.EventType {
	case ConfirmationConverted:
		return 1.0
	case ConfirmationClicked:
		return 1.0
	case ConfirmationLanded:
		return 0.75
	case ConfirmationViewed:
		return 0.25
	case ConfirmationDismissed:
		return 0.0
	default:
		return 0.0
	}
}
