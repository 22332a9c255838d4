// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package exclusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adserve/internal/adstest"
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/log"
)

func testContext(snapshot *Snapshot) *Context {
	return &Context{
		Snapshot:    snapshot,
		Now:         adstest.Now,
		AdType:      ads.AdTypeNotification,
		CountryCode: "US",
		Config:      Config{SameAdvertiserExclusionEnabled: true},
	}
}

func apply(t *testing.T, candidates []ads.CreativeAd, ctx *Context) []ads.CreativeAd {
	t.Helper()
	return Apply(candidates, DefaultRules(), ctx, log.NoOp())
}

func TestValidityWindow(t *testing.T) {
	require := require.New(t)

	active := adstest.NewCreative()
	expired := adstest.NewCreative(adstest.WithWindow(
		adstest.Now.Add(-48*time.Hour), adstest.Now.Add(-24*time.Hour)))
	upcoming := adstest.NewCreative(adstest.WithWindow(
		adstest.Now.Add(24*time.Hour), adstest.Now.Add(48*time.Hour)))

	out := apply(t, []ads.CreativeAd{active, expired, upcoming},
		testContext(NewSnapshot(nil, nil)))

	require.Len(out, 1)
	require.Equal(active.CreativeInstanceID, out[0].CreativeInstanceID)
}

func TestDailyCap(t *testing.T) {
	require := require.New(t)

	capped := adstest.NewCreative(adstest.WithDailyCap(1))
	events := []ads.AdEvent{
		adstest.ServedEvent(capped, ads.AdTypeNotification, adstest.Now.Add(-time.Hour)),
	}

	out := apply(t, []ads.CreativeAd{capped}, testContext(NewSnapshot(events, nil)))
	require.Empty(out)

	// The same served count outside the trailing 24h no longer counts.
	stale := []ads.AdEvent{
		adstest.ServedEvent(capped, ads.AdTypeNotification, adstest.Now.Add(-25*time.Hour)),
	}
	out = apply(t, []ads.CreativeAd{capped}, testContext(NewSnapshot(stale, nil)))
	require.Len(out, 1)
}

func TestDailyCapDefault(t *testing.T) {
	require := require.New(t)

	// No per-creative cap; the configured default applies.
	c := adstest.NewCreative()
	events := []ads.AdEvent{
		adstest.ServedEvent(c, ads.AdTypeNotification, adstest.Now.Add(-time.Hour)),
	}

	ctx := testContext(NewSnapshot(events, nil))
	ctx.Config.DailyCapDefault = 1
	require.Empty(apply(t, []ads.CreativeAd{c}, ctx))

	ctx.Config.DailyCapDefault = 0
	require.Len(apply(t, []ads.CreativeAd{c}, ctx), 1)
}

func TestTotalMaxIsLifetime(t *testing.T) {
	require := require.New(t)

	c := adstest.NewCreative(adstest.WithTotalMax(2))
	events := []ads.AdEvent{
		adstest.ServedEvent(c, ads.AdTypeNotification, adstest.Now.Add(-60*24*time.Hour)),
		adstest.ServedEvent(c, ads.AdTypeNotification, adstest.Now.Add(-time.Hour)),
	}

	out := apply(t, []ads.CreativeAd{c}, testContext(NewSnapshot(events, nil)))
	require.Empty(out)
}

func TestUncappedAdTypeSkipsFrequencyCaps(t *testing.T) {
	require := require.New(t)

	c := adstest.NewCreative(adstest.WithDailyCap(1), adstest.WithTotalMax(1))
	events := []ads.AdEvent{
		adstest.ServedEvent(c, ads.AdTypeNewTabPage, adstest.Now.Add(-time.Hour)),
	}

	ctx := testContext(NewSnapshot(events, nil))
	ctx.AdType = ads.AdTypeNewTabPage
	out := apply(t, []ads.CreativeAd{c}, ctx)
	require.Len(out, 1)
}

func TestDismissedAndConverted(t *testing.T) {
	require := require.New(t)

	dismissed := adstest.NewCreative()
	converted := adstest.NewCreative()
	clean := adstest.NewCreative()
	events := []ads.AdEvent{
		adstest.Event(dismissed, ads.AdTypeNotification, ads.ConfirmationDismissed, adstest.Now.Add(-time.Hour)),
		adstest.Event(converted, ads.AdTypeNotification, ads.ConfirmationConverted, adstest.Now.Add(-time.Hour)),
	}

	out := apply(t, []ads.CreativeAd{dismissed, converted, clean},
		testContext(NewSnapshot(events, nil)))
	require.Len(out, 1)
	require.Equal(clean.CreativeInstanceID, out[0].CreativeInstanceID)
}

func TestSameAdvertiserConsecutive(t *testing.T) {
	require := require.New(t)

	c := adstest.NewCreative(adstest.WithAdvertiserID("advertiser-1"))
	last := adstest.ServedEvent(c, ads.AdTypeNotification, adstest.Now.Add(-time.Minute))

	ctx := testContext(NewSnapshot(nil, &last))
	require.Empty(apply(t, []ads.CreativeAd{c}, ctx))

	// Rule is configurable off.
	ctx.Config.SameAdvertiserExclusionEnabled = false
	require.Len(apply(t, []ads.CreativeAd{c}, ctx), 1)

	// Different advertiser most recently served passes.
	other := adstest.NewCreative(adstest.WithAdvertiserID("advertiser-2"))
	lastOther := adstest.ServedEvent(other, ads.AdTypeNotification, adstest.Now.Add(-time.Minute))
	ctx = testContext(NewSnapshot(nil, &lastOther))
	require.Len(apply(t, []ads.CreativeAd{c}, ctx), 1)
}

func TestDaypartMismatch(t *testing.T) {
	require := require.New(t)

	// adstest.Now is a Tuesday at noon UTC.
	covering := ads.Daypart{DaysOfWeek: 1 << uint8(time.Tuesday), StartMinute: 0, EndMinute: 24*60 - 1}
	nightOnly := ads.Daypart{DaysOfWeek: 1 << uint8(time.Tuesday), StartMinute: 22 * 60, EndMinute: 23 * 60}

	inWindow := adstest.NewCreative(adstest.WithDayparts(covering))
	outOfWindow := adstest.NewCreative(adstest.WithDayparts(nightOnly))
	noDayparts := adstest.NewCreative()

	out := apply(t, []ads.CreativeAd{inWindow, outOfWindow, noDayparts},
		testContext(NewSnapshot(nil, nil)))
	require.Len(out, 2)
	for _, c := range out {
		require.NotEqual(outOfWindow.CreativeInstanceID, c.CreativeInstanceID)
	}
}

func TestGeoAllowAllSentinel(t *testing.T) {
	require := require.New(t)

	everywhere := adstest.NewCreative()
	usOnly := adstest.NewCreative(adstest.WithGeoTargets("US"))
	deOnly := adstest.NewCreative(adstest.WithGeoTargets("DE"))

	ctx := testContext(NewSnapshot(nil, nil))
	ctx.CountryCode = "GB"

	out := apply(t, []ads.CreativeAd{everywhere, usOnly, deOnly}, ctx)
	require.Len(out, 1)
	require.Equal(everywhere.CreativeInstanceID, out[0].CreativeInstanceID)
}

func TestGeoSubdivisionMatch(t *testing.T) {
	require := require.New(t)

	subdivision := adstest.NewCreative(adstest.WithGeoTargets("US-CA"))

	ctx := testContext(NewSnapshot(nil, nil))
	ctx.CountryCode = "US"
	ctx.SubdivisionCode = "US-CA"
	require.Len(apply(t, []ads.CreativeAd{subdivision}, ctx), 1)

	ctx.SubdivisionCode = "US-NY"
	require.Empty(apply(t, []ads.CreativeAd{subdivision}, ctx))
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	require := require.New(t)

	expired := adstest.NewCreative(adstest.WithWindow(
		adstest.Now.Add(-48*time.Hour), adstest.Now.Add(-24*time.Hour)))
	active := adstest.NewCreative()
	in := []ads.CreativeAd{expired, active}

	out := apply(t, in, testContext(NewSnapshot(nil, nil)))
	require.Len(out, 1)
	require.Len(in, 2)
	require.Equal(expired.CreativeInstanceID, in[0].CreativeInstanceID)
}
