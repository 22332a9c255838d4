// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bandit

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

var migrations = []string{
	`CREATE TABLE bandit_arms (
  segment        TEXT PRIMARY KEY,
  pull_count     INTEGER NOT NULL DEFAULT 0,
  value_estimate REAL NOT NULL DEFAULT 0
);`,
}

// SQLiteStore persists the arm table in an embedded sqlite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the bandit state database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		db.Close()
		return nil, fmt.Errorf("read schema version: %w", err)
	}
	for i := version; i < len(migrations); i++ {
		if _, err := db.Exec(migrations[i]); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", i+1)); err != nil {
			db.Close()
			return nil, fmt.Errorf("bump schema version: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]Arm, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT segment, pull_count, value_estimate FROM bandit_arms")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	arms := make(map[string]Arm)
	for rows.Next() {
		var segment string
		var arm Arm
		if err := rows.Scan(&segment, &arm.PullCount, &arm.ValueEstimate); err != nil {
			return nil, err
		}
		arms[segment] = arm
	}
	return arms, rows.Err()
}

func (s *SQLiteStore) Save(ctx context.Context, segment string, arm Arm) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO bandit_arms (segment, pull_count, value_estimate) VALUES (?,?,?)",
		segment, arm.PullCount, arm.ValueEstimate)
	return err
}
