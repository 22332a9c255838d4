// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package permission gates serving before any catalog work happens. All
// checks read already-cached state; there is no I/O here.
package permission

import (
	"fmt"
	"sync"
	"time"

	"github.com/adxyz/adserve/pkg/ads"
	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/log"
)

// Context is the cached state the permission checks read.
type Context struct {
	// OptedInAdTypes lists the ad types the user has enabled.
	OptedInAdTypes map[ads.AdType]bool

	// CatalogLastUpdated is the time the catalog was last refreshed. Zero
	// means no catalog has ever been fetched.
	CatalogLastUpdated time.Time

	// IssuerKeysPresent reports whether reward-issuer public keys are
	// cached. Only checked when the build requires token confirmations.
	IssuerKeysPresent bool
	RequireIssuerKeys bool

	// Browser state.
	PrivateBrowsing bool
	ScreenLocked    bool
	IdleFor         time.Duration
}

// Rules is the serving permission gate. Each check can independently veto;
// the first failing check wins and its reason is kept as the last message.
type Rules struct {
	catalogPingInterval time.Duration
	idleThreshold       time.Duration
	clock               clock.Clock
	log                 log.Logger

	mu          sync.Mutex
	lastMessage string
}

// NewRules creates the permission gate. catalogPingInterval bounds catalog
// staleness; idleThreshold bounds how long the user may be idle.
func NewRules(catalogPingInterval, idleThreshold time.Duration, clk clock.Clock, logger log.Logger) *Rules {
	return &Rules{
		catalogPingInterval: catalogPingInterval,
		idleThreshold:       idleThreshold,
		clock:               clk,
		log:                 logger,
	}
}

// HasPermission reports whether serving the ad type is allowed right now.
func (r *Rules) HasPermission(adType ads.AdType, ctx Context) bool {
	if !ctx.OptedInAdTypes[adType] {
		return r.deny(fmt.Sprintf("user has not opted in to %s", adType))
	}
	if ctx.CatalogLastUpdated.IsZero() {
		return r.deny("catalog has never been fetched")
	}
	if r.clock.Now().Sub(ctx.CatalogLastUpdated) >= r.catalogPingInterval {
		return r.deny("catalog is stale")
	}
	if ctx.RequireIssuerKeys && !ctx.IssuerKeysPresent {
		return r.deny("reward issuer keys are missing")
	}
	if ctx.PrivateBrowsing {
		return r.deny("private browsing session")
	}
	if ctx.ScreenLocked {
		return r.deny("screen is locked")
	}
	if r.idleThreshold > 0 && ctx.IdleFor >= r.idleThreshold {
		return r.deny("user is idle")
	}

	r.mu.Lock()
	r.lastMessage = ""
	r.mu.Unlock()
	return true
}

// LastMessage returns the reason the most recent HasPermission call denied
// serving, or empty when it allowed.
func (r *Rules) LastMessage() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastMessage
}

func (r *Rules) deny(reason string) bool {
	r.mu.Lock()
	r.lastMessage = reason
	r.mu.Unlock()
	r.log.Debug("serving not permitted", "reason", reason)
	return false
}
