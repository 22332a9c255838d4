// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package serving

import (
	"time"

	"github.com/shopspring/decimal"
)

// Config is the externally supplied configuration surface of the serving
// engine.
type Config struct {
	// DailyCapDefault applies to creatives without their own daily cap.
	DailyCapDefault int

	// Epsilon is the bandit exploration probability.
	Epsilon float64

	// PacingEnabled toggles probabilistic admission after exclusion.
	PacingEnabled bool

	// SameAdvertiserExclusionEnabled toggles the anti-fatigue rule.
	SameAdvertiserExclusionEnabled bool

	// CatalogPingInterval bounds catalog staleness for the permission
	// gate.
	CatalogPingInterval time.Duration

	// IdleThreshold bounds user idleness for the permission gate. Zero
	// disables the check.
	IdleThreshold time.Duration

	// HistoryRetentionWindow bounds how far back events are kept and
	// queried.
	HistoryRetentionWindow time.Duration

	// DepositValue is credited per reward-bearing interaction;
	// DepositTTL bounds how long it waits for conversion confirmation.
	DepositValue decimal.Decimal
	DepositTTL   time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		DailyCapDefault:                0,
		Epsilon:                        0.25,
		PacingEnabled:                  true,
		SameAdvertiserExclusionEnabled: true,
		CatalogPingInterval:            2 * time.Hour,
		IdleThreshold:                  0,
		HistoryRetentionWindow:         90 * 24 * time.Hour,
		DepositValue:                   decimal.NewFromFloat(0.01),
		DepositTTL:                     30 * 24 * time.Hour,
	}
}
