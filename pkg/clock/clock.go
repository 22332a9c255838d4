// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time. Injected everywhere the pipeline needs
// "now" so tests can pin it.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// System returns a clock backed by time.Now.
func System() Clock { return systemClock{} }

// FrozenClock is a clock pinned to a fixed instant, advanced manually.
type FrozenClock struct {
	mu  sync.Mutex
	now time.Time
}

// Frozen returns a clock pinned to t.
func Frozen(t time.Time) *FrozenClock {
	return &FrozenClock{now: t}
}

func (c *FrozenClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the frozen clock forward by d.
func (c *FrozenClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set pins the frozen clock to t.
func (c *FrozenClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
