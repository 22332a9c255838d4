// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/adxyz/adserve/pkg/ads"
)

// migrations are applied in order; the schema version is tracked with the
// sqlite user_version pragma.
var migrations = []string{
	`CREATE TABLE ad_events (
  id                   INTEGER PRIMARY KEY,
  placement_id         TEXT NOT NULL,
  creative_instance_id TEXT NOT NULL,
  creative_set_id      TEXT NOT NULL,
  campaign_id          TEXT NOT NULL,
  advertiser_id        TEXT NOT NULL,
  segment              TEXT NOT NULL DEFAULT '',
  ad_type              TEXT NOT NULL,
  confirmation_type    TEXT NOT NULL,
  created_at           INTEGER NOT NULL
);
CREATE INDEX idx_ad_events_instance ON ad_events(creative_instance_id, confirmation_type, created_at);
CREATE INDEX idx_ad_events_set ON ad_events(creative_set_id, confirmation_type, created_at);
CREATE INDEX idx_ad_events_type ON ad_events(ad_type, confirmation_type, created_at);`,
}

// SQLiteStore is a Store over an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the event database at path and applies any
// pending schema migrations.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
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

func (s *SQLiteStore) Append(ctx context.Context, e ads.AdEvent) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO ad_events
(placement_id, creative_instance_id, creative_set_id, campaign_id, advertiser_id, segment, ad_type, confirmation_type, created_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		e.PlacementID, e.CreativeInstanceID, e.CreativeSetID, e.CampaignID,
		e.AdvertiserID, e.Segment, string(e.AdType), string(e.ConfirmationType),
		e.CreatedAt.UnixMicro())
	if err != nil {
		return fmt.Errorf("%w: append: %v", ErrStorageUnavailable, err)
	}
	return nil
}

func scopeClauses(scope Scope) (string, []any) {
	var clauses []string
	var args []any
	if scope.CreativeInstanceID != "" {
		clauses = append(clauses, "creative_instance_id = ?")
		args = append(args, scope.CreativeInstanceID)
	}
	if scope.CreativeSetID != "" {
		clauses = append(clauses, "creative_set_id = ?")
		args = append(args, scope.CreativeSetID)
	}
	if scope.CampaignID != "" {
		clauses = append(clauses, "campaign_id = ?")
		args = append(args, scope.CampaignID)
	}
	if scope.AdvertiserID != "" {
		clauses = append(clauses, "advertiser_id = ?")
		args = append(args, scope.AdvertiserID)
	}
	if scope.AdType != "" {
		clauses = append(clauses, "ad_type = ?")
		args = append(args, string(scope.AdType))
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

func windowClauses(window Window) (string, []any) {
	var clauses []string
	var args []any
	if !window.Since.IsZero() {
		clauses = append(clauses, "created_at >= ?")
		args = append(args, window.Since.UnixMicro())
	}
	if !window.Until.IsZero() {
		clauses = append(clauses, "created_at <= ?")
		args = append(args, window.Until.UnixMicro())
	}
	if len(clauses) == 0 {
		return "1=1", nil
	}
	return strings.Join(clauses, " AND "), args
}

func (s *SQLiteStore) Query(ctx context.Context, scope Scope, window Window) ([]ads.AdEvent, error) {
	sc, scArgs := scopeClauses(scope)
	wc, wcArgs := windowClauses(window)
	q := `SELECT placement_id, creative_instance_id, creative_set_id, campaign_id, advertiser_id, segment, ad_type, confirmation_type, created_at
FROM ad_events WHERE ` + sc + ` AND ` + wc + ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, q, append(scArgs, wcArgs...)...)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []ads.AdEvent
	for rows.Next() {
		var e ads.AdEvent
		var adType, confirmation string
		var createdAt int64
		if err := rows.Scan(&e.PlacementID, &e.CreativeInstanceID, &e.CreativeSetID,
			&e.CampaignID, &e.AdvertiserID, &e.Segment, &adType, &confirmation, &createdAt); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorageUnavailable, err)
		}
		e.AdType = ads.AdType(adType)
		e.ConfirmationType = ads.ConfirmationType(confirmation)
		e.CreatedAt = time.UnixMicro(createdAt)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStorageUnavailable, err)
	}
	return out, nil
}

func (s *SQLiteStore) CountEventsOfType(ctx context.Context, confirmation ads.ConfirmationType, scope Scope, window Window) (int, error) {
	sc, scArgs := scopeClauses(scope)
	wc, wcArgs := windowClauses(window)
	q := `SELECT COUNT(*) FROM ad_events WHERE confirmation_type = ? AND ` + sc + ` AND ` + wc

	args := append([]any{string(confirmation)}, append(scArgs, wcArgs...)...)
	var count int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: count: %v", ErrStorageUnavailable, err)
	}
	return count, nil
}

func (s *SQLiteStore) LastServed(ctx context.Context, adType ads.AdType) (*ads.AdEvent, error) {
	q := `SELECT placement_id, creative_instance_id, creative_set_id, campaign_id, advertiser_id, segment, ad_type, confirmation_type, created_at
FROM ad_events WHERE ad_type = ? AND confirmation_type = ? ORDER BY created_at DESC LIMIT 1`

	var e ads.AdEvent
	var at, confirmation string
	var createdAt int64
	err := s.db.QueryRowContext(ctx, q, string(adType), string(ads.ConfirmationServed)).
		Scan(&e.PlacementID, &e.CreativeInstanceID, &e.CreativeSetID, &e.CampaignID,
			&e.AdvertiserID, &e.Segment, &at, &confirmation, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: last served: %v", ErrStorageUnavailable, err)
	}
	e.AdType = ads.AdType(at)
	e.ConfirmationType = ads.ConfirmationType(confirmation)
	e.CreatedAt = time.UnixMicro(createdAt)
	return &e, nil
}

func (s *SQLiteStore) PurgeExpired(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM ad_events WHERE created_at < ?", cutoff.UnixMicro())
	if err != nil {
		return 0, fmt.Errorf("%w: purge: %v", ErrStorageUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return int(n), nil
}
