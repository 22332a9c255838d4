// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package permission

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/adxyz/adserve/internal/adstest"
	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/log"
)

func allowedContext() Context {
	return Context{
		OptedInAdTypes:     adstest.OptedIn(ads.AdTypeNotification),
		CatalogLastUpdated: adstest.Now.Add(-time.Hour),
		IssuerKeysPresent:  true,
	}
}

func newRules() *Rules {
	return NewRules(2*time.Hour, 15*time.Minute, clock.Frozen(adstest.Now), log.NoOp())
}

func TestHasPermissionAllows(t *testing.T) {
	require := require.New(t)

	r := newRules()
	require.True(r.HasPermission(ads.AdTypeNotification, allowedContext()))
	require.Empty(r.LastMessage())
}

func TestNotOptedInDeniesRegardlessOfFreshness(t *testing.T) {
	require := require.New(t)

	r := newRules()
	ctx := allowedContext()
	ctx.OptedInAdTypes = nil

	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
	require.Contains(r.LastMessage(), "opted in")

	// Opted in to a different surface only.
	ctx.OptedInAdTypes = adstest.OptedIn(ads.AdTypeNewTabPage)
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
}

func TestCatalogFreshness(t *testing.T) {
	require := require.New(t)

	r := newRules()

	ctx := allowedContext()
	ctx.CatalogLastUpdated = time.Time{}
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
	require.Contains(r.LastMessage(), "never been fetched")

	ctx.CatalogLastUpdated = adstest.Now.Add(-3 * time.Hour)
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
	require.Contains(r.LastMessage(), "stale")
}

func TestIssuerKeysOnlyWhenRequired(t *testing.T) {
	require := require.New(t)

	r := newRules()
	ctx := allowedContext()
	ctx.IssuerKeysPresent = false

	require.True(r.HasPermission(ads.AdTypeNotification, ctx))

	ctx.RequireIssuerKeys = true
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
	require.Contains(r.LastMessage(), "issuer keys")
}

func TestBrowserStateVetoes(t *testing.T) {
	require := require.New(t)

	r := newRules()

	ctx := allowedContext()
	ctx.PrivateBrowsing = true
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))

	ctx = allowedContext()
	ctx.ScreenLocked = true
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))

	ctx = allowedContext()
	ctx.IdleFor = time.Hour
	require.False(r.HasPermission(ads.AdTypeNotification, ctx))
	require.Contains(r.LastMessage(), "idle")
}

func TestIdleCheckDisabledWithZeroThreshold(t *testing.T) {
	require := require.New(t)

	r := NewRules(2*time.Hour, 0, clock.Frozen(adstest.Now), log.NoOp())
	ctx := allowedContext()
	ctx.IdleFor = 10 * time.Hour
	require.True(r.HasPermission(ads.AdTypeNotification, ctx))
}
