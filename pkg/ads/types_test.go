// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package ads

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreativeAdValidate(t *testing.T) {
	require := require.New(t)

	valid := CreativeAd{
		CreativeInstanceID: "instance-1",
		StartAt:            time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
		EndAt:              time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
		Priority:           1,
		PassThroughRate:    0.5,
	}
	require.NoError(valid.Validate())

	inverted := valid
	inverted.StartAt, inverted.EndAt = inverted.EndAt, inverted.StartAt
	require.ErrorIs(inverted.Validate(), ErrInvalidCandidate)

	badPriority := valid
	badPriority.Priority = 0
	require.ErrorIs(badPriority.Validate(), ErrInvalidCandidate)

	badRate := valid
	badRate.PassThroughRate = 1.5
	require.ErrorIs(badRate.Validate(), ErrInvalidCandidate)

	missingID := valid
	missingID.CreativeInstanceID = ""
	require.ErrorIs(missingID.Validate(), ErrInvalidCandidate)
}

func TestDaypartCovers(t *testing.T) {
	require := require.New(t)

	// Weekdays, 09:00-17:00.
	d := Daypart{
		DaysOfWeek:  0b0111110,
		StartMinute: 9 * 60,
		EndMinute:   17 * 60,
	}

	tuesdayNoon := time.Date(2025, 6, 17, 12, 0, 0, 0, time.UTC)
	require.Equal(time.Tuesday, tuesdayNoon.Weekday())
	require.True(d.Covers(tuesdayNoon))

	tuesdayNight := time.Date(2025, 6, 17, 22, 0, 0, 0, time.UTC)
	require.False(d.Covers(tuesdayNight))

	sundayNoon := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	require.Equal(time.Sunday, sundayNoon.Weekday())
	require.False(d.Covers(sundayNoon))

	// Boundaries are inclusive.
	nineSharp := time.Date(2025, 6, 17, 9, 0, 0, 0, time.UTC)
	require.True(d.Covers(nineSharp))
	fiveSharp := time.Date(2025, 6, 17, 17, 0, 0, 0, time.UTC)
	require.True(d.Covers(fiveSharp))
}

func TestAdTypeFrequencyCapped(t *testing.T) {
	require := require.New(t)

	require.True(AdTypeNotification.IsFrequencyCapped())
	require.True(AdTypeInlineContent.IsFrequencyCapped())
	require.False(AdTypeNewTabPage.IsFrequencyCapped())
	require.False(AdTypePromotedContent.IsFrequencyCapped())
}

func TestBanditFeedbackRewardMonotonic(t *testing.T) {
	require := require.New(t)

	reward := func(c ConfirmationType) float64 {
		return BanditFeedback{Segment: "s", EventType: c}.Reward()
	}

	require.Equal(0.0, reward(ConfirmationDismissed))
	require.Greater(reward(ConfirmationViewed), reward(ConfirmationDismissed))
	require.Greater(reward(ConfirmationLanded), reward(ConfirmationViewed))
	require.GreaterOrEqual(reward(ConfirmationClicked), reward(ConfirmationLanded))
	require.GreaterOrEqual(reward(ConfirmationConverted), reward(ConfirmationClicked))
}
