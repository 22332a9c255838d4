// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package locale

import "sync"

// Resolver reports the resolved region codes for geo targeting. Calls are
// synchronous against cached state; resolution itself happens elsewhere.
type Resolver interface {
	CountryCode() string
	SubdivisionCode() string
}

// StaticResolver is a Resolver over fixed region codes, updated externally
// when the platform re-resolves the locale.
type StaticResolver struct {
	mu          sync.RWMutex
	country     string
	subdivision string
}

// NewStatic returns a resolver pinned to the given codes. The subdivision
// code uses the "COUNTRY-REGION" form, e.g. "US-CA".
func NewStatic(country, subdivision string) *StaticResolver {
	return &StaticResolver{country: country, subdivision: subdivision}
}

func (r *StaticResolver) CountryCode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.country
}

func (r *StaticResolver) SubdivisionCode() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subdivision
}

// Update replaces the resolved codes.
func (r *StaticResolver) Update(country, subdivision string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.country = country
	r.subdivision = subdivision
}
