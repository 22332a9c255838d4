// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"context"
	"sync"

	"github.com/adxyz/adserve/pkg/ads"
)

// MemoryStore is an in-memory catalog keyed by ad type. Used by tests and
// by embedders that load the catalog themselves.
type MemoryStore struct {
	mu        sync.RWMutex
	creatives map[ads.AdType][]ads.CreativeAd
}

// NewMemoryStore returns an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{creatives: make(map[ads.AdType][]ads.CreativeAd)}
}

// Add registers a creative under the given ad type.
func (s *MemoryStore) Add(adType ads.AdType, creative ads.CreativeAd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creatives[adType] = append(s.creatives[adType], creative)
}

// Replace swaps the whole catalog for an ad type, modeling an external
// catalog refresh.
func (s *MemoryStore) Replace(adType ads.AdType, creatives []ads.CreativeAd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creatives[adType] = append([]ads.CreativeAd(nil), creatives...)
}

func (s *MemoryStore) GetCandidates(ctx context.Context, adType ads.AdType, segments []string) ([]ads.CreativeAd, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ads.CreativeAd
	for _, c := range s.creatives[adType] {
		if len(segments) > 0 && !matchesSegment(segments, c.Segment) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func matchesSegment(segments []string, segment string) bool {
	for _, s := range segments {
		if s == segment {
			return true
		}
	}
	return false
}
