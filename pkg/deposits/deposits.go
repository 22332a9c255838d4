// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package deposits tracks pending credit tied to creative instances until
// the confirmation subsystem redeems it or it expires.
package deposits

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/adxyz/adserve/pkg/clock"
	"github.com/adxyz/adserve/pkg/log"
)

var ErrDepositNotFound = errors.New("deposit not found")

// Deposit is pending value awaiting conversion confirmation.
type Deposit struct {
	CreativeInstanceID string
	Value              decimal.Decimal
	ExpireAt           time.Time
}

// Manager owns the deposit ledger. Writes are serialized behind a mutex;
// the confirmation subsystem reads through GetForCreativeInstance.
type Manager struct {
	mu       sync.RWMutex
	deposits map[string]Deposit
	clock    clock.Clock
	log      log.Logger
}

// NewManager creates an empty deposit ledger.
func NewManager(clk clock.Clock, logger log.Logger) *Manager {
	return &Manager{
		deposits: make(map[string]Deposit),
		clock:    clk,
		log:      logger,
	}
}

// Add records a deposit for a creative instance, replacing any existing
// unexpired deposit for the same instance.
func (m *Manager) Add(creativeInstanceID string, value decimal.Decimal, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.deposits[creativeInstanceID] = Deposit{
		CreativeInstanceID: creativeInstanceID,
		Value:              value,
		ExpireAt:           m.clock.Now().Add(ttl),
	}
	m.log.Debug("deposit recorded", "creative_instance_id", creativeInstanceID, "value", value.String())
}

// GetForCreativeInstance returns the pending deposit for a creative
// instance. Expired deposits are reported as not found.
func (m *Manager) GetForCreativeInstance(creativeInstanceID string) (Deposit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.deposits[creativeInstanceID]
	if !ok || d.ExpireAt.Before(m.clock.Now()) {
		return Deposit{}, ErrDepositNotFound
	}
	return d, nil
}

// Redeem removes and returns the deposit for a creative instance.
func (m *Manager) Redeem(creativeInstanceID string) (Deposit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, ok := m.deposits[creativeInstanceID]
	if !ok || d.ExpireAt.Before(m.clock.Now()) {
		return Deposit{}, ErrDepositNotFound
	}
	delete(m.deposits, creativeInstanceID)
	return d, nil
}

// Sweep removes expired deposits and reports how many were purged.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	purged := 0
	for id, d := range m.deposits {
		if d.ExpireAt.Before(now) {
			delete(m.deposits, id)
			purged++
		}
	}
	if purged > 0 {
		m.log.Debug("deposits swept", "purged", purged)
	}
	return purged
}
