// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package catalog exposes a read-only view over the creative ad catalog.
// Catalog ingestion and refresh are external; the serving pipeline only
// fetches candidates through Store.
package catalog

import (
	"context"
	"errors"

	"github.com/adxyz/adserve/pkg/ads"
)

// ErrStoreUnavailable is returned when the catalog database cannot be
// reached.
var ErrStoreUnavailable = errors.New("creative ad store unavailable")

// Store serves candidate creatives for an ad type. An empty segments
// filter returns all creatives for the type.
type Store interface {
	GetCandidates(ctx context.Context, adType ads.AdType, segments []string) ([]ads.CreativeAd, error)
}
