// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"sync"
	"time"

	"github.com/adxyz/adserve/pkg/ads"
)

// MemoryStore is an in-memory Store, safe for concurrent use. Used by
// tests and by embedders that do not need persistence.
type MemoryStore struct {
	mu     sync.RWMutex
	events []ads.AdEvent
}

// NewMemoryStore returns an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Append(ctx context.Context, event ads.AdEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *MemoryStore) Query(ctx context.Context, scope Scope, window Window) ([]ads.AdEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ads.AdEvent
	for i := range s.events {
		e := s.events[i]
		if scope.Matches(&e) && window.Contains(e.CreatedAt) {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) CountEventsOfType(ctx context.Context, confirmation ads.ConfirmationType, scope Scope, window Window) (int, error) {
	events, err := s.Query(ctx, scope, window)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range events {
		if events[i].ConfirmationType == confirmation {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) LastServed(ctx context.Context, adType ads.AdType) (*ads.AdEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *ads.AdEvent
	for i := range s.events {
		e := &s.events[i]
		if e.AdType != adType || e.ConfirmationType != ads.ConfirmationServed {
			continue
		}
		if last == nil || e.CreatedAt.After(last.CreatedAt) {
			last = e
		}
	}
	if last == nil {
		return nil, nil
	}
	out := *last
	return &out, nil
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	purged := 0
	for i := range s.events {
		if s.events[i].CreatedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, s.events[i])
	}
	s.events = kept
	return purged, nil
}
