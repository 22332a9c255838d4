// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package deposits

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/adxyz/adserve/internal/adstest"
	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/log"
)

func TestAddAndRedeem(t *testing.T) {
	require := require.New(t)

	m := NewManager(clock.Frozen(adstest.Now), log.NoOp())
	m.Add("instance-1", decimal.NewFromFloat(0.05), time.Hour)

	d, err := m.GetForCreativeInstance("instance-1")
	require.NoError(err)
	require.True(d.Value.Equal(decimal.NewFromFloat(0.05)))

	d, err = m.Redeem("instance-1")
	require.NoError(err)
	require.True(d.Value.Equal(decimal.NewFromFloat(0.05)))

	_, err = m.Redeem("instance-1")
	require.ErrorIs(err, ErrDepositNotFound)
}

func TestExpiredDepositNotFound(t *testing.T) {
	require := require.New(t)

	clk := clock.Frozen(adstest.Now)
	m := NewManager(clk, log.NoOp())
	m.Add("instance-1", decimal.NewFromFloat(0.05), time.Hour)

	clk.Advance(2 * time.Hour)
	_, err := m.GetForCreativeInstance("instance-1")
	require.ErrorIs(err, ErrDepositNotFound)
}

func TestSweepPurgesOnlyExpired(t *testing.T) {
	require := require.New(t)

	clk := clock.Frozen(adstest.Now)
	m := NewManager(clk, log.NoOp())
	m.Add("short", decimal.NewFromFloat(0.01), time.Hour)
	m.Add("long", decimal.NewFromFloat(0.01), 10*time.Hour)

	clk.Advance(2 * time.Hour)
	require.Equal(1, m.Sweep())

	_, err := m.GetForCreativeInstance("long")
	require.NoError(err)
}
