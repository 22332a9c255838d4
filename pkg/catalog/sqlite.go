// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adxyz/adserve/pkg/ads"
)

var migrations = []string{
	`CREATE TABLE creative_ads (
  creative_instance_id TEXT PRIMARY KEY,
  creative_set_id      TEXT NOT NULL,
  campaign_id          TEXT NOT NULL,
  advertiser_id        TEXT NOT NULL,
  ad_type              TEXT NOT NULL,
  start_at             INTEGER NOT NULL,
  end_at               INTEGER NOT NULL,
  daily_cap            INTEGER NOT NULL DEFAULT 0,
  per_day              INTEGER NOT NULL DEFAULT 0,
  per_week             INTEGER NOT NULL DEFAULT 0,
  per_month            INTEGER NOT NULL DEFAULT 0,
  total_max            INTEGER NOT NULL DEFAULT 0,
  priority             INTEGER NOT NULL DEFAULT 1,
  pass_through_rate    REAL NOT NULL DEFAULT 0,
  segment              TEXT NOT NULL DEFAULT '',
  geo_targets          TEXT NOT NULL DEFAULT '[]',
  dayparts             TEXT NOT NULL DEFAULT '[]'
);
CREATE INDEX idx_creative_ads_type ON creative_ads(ad_type, segment);`,
}

// SQLiteStore is a Store over an embedded sqlite catalog database. The
// catalog refresh process owns writes; serving only reads.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the catalog database at path and applies
// any pending schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			return fmt.Errorf("bump schema version: %w", err)
		}
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Upsert inserts or replaces a creative, used by the catalog refresh side.
func (s *SQLiteStore) Upsert(ctx context.Context, adType ads.AdType, c ads.CreativeAd) error {
	geo, err := json.Marshal(c.GeoTargets)
	if err != nil {
		return err
	}
	dayparts, err := json.Marshal(c.Dayparts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR REPLACE INTO creative_ads
(creative_instance_id, creative_set_id, campaign_id, advertiser_id, ad_type, start_at, end_at,
 daily_cap, per_day, per_week, per_month, total_max, priority, pass_through_rate, segment, geo_targets, dayparts)
VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		c.CreativeInstanceID, c.CreativeSetID, c.CampaignID, c.AdvertiserID, string(adType),
		c.StartAt.UnixMicro(), c.EndAt.UnixMicro(), c.DailyCap, c.PerDay, c.PerWeek, c.PerMonth,
		c.TotalMax, c.Priority, c.PassThroughRate, c.Segment, string(geo), string(dayparts))
	if err != nil {
		return fmt.Errorf("%w: upsert: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *SQLiteStore) GetCandidates(ctx context.Context, adType ads.AdType, segments []string) ([]ads.CreativeAd, error) {
	q := `SELECT creative_instance_id, creative_set_id, campaign_id, advertiser_id, start_at, end_at,
daily_cap, per_day, per_week, per_month, total_max, priority, pass_through_rate, segment, geo_targets, dayparts
FROM creative_ads WHERE ad_type = ?`
	args := []any{string(adType)}
	if len(segments) > 0 {
		q += " AND segment IN (?" + strings.Repeat(",?", len(segments)-1) + ")"
		for _, seg := range segments {
			args = append(args, seg)
		}
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	var out []ads.CreativeAd
	for rows.Next() {
		var c ads.CreativeAd
		var startAt, endAt int64
		var geo, dayparts string
		if err := rows.Scan(&c.CreativeInstanceID, &c.CreativeSetID, &c.CampaignID, &c.AdvertiserID,
			&startAt, &endAt, &c.DailyCap, &c.PerDay, &c.PerWeek, &c.PerMonth, &c.TotalMax,
			&c.Priority, &c.PassThroughRate, &c.Segment, &geo, &dayparts); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStoreUnavailable, err)
		}
		c.StartAt = time.UnixMicro(startAt)
		c.EndAt = time.UnixMicro(endAt)
		if err := json.Unmarshal([]byte(geo), &c.GeoTargets); err != nil {
			return nil, fmt.Errorf("%w: geo targets: %v", ErrStoreUnavailable, err)
		}
		if err := json.Unmarshal([]byte(dayparts), &c.Dayparts); err != nil {
			return nil, fmt.Errorf("%w: dayparts: %v", ErrStoreUnavailable, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStoreUnavailable, err)
	}
	return out, nil
}
