// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// CacheEntry is a stored provider answer.
type CacheEntry struct {
	Places    []Place
	CreatedAt time.Time
}

// CacheStats summarizes the cache contents.
type CacheStats struct {
	SearchEntries  int64      `json:"search_entries"`
	ReverseEntries int64      `json:"reverse_entries"`
	Oldest         *time.Time `json:"oldest,omitempty"`
}

// CacheRepository persists provider answers.
type CacheRepository interface {
	// CreateSchema creates the cache tables
	CreateSchema() error

	// GetSearch returns the stored answer for a normalized query, or nil
	GetSearch(ctx context.Context, provider, query string, limit int) (*CacheEntry, error)

	// PutSearch stores (or replaces) the answer for a normalized query
	PutSearch(ctx context.Context, provider, query string, limit int, places []Place) error

	// GetReverse returns the stored answer for an H3 cell, or nil
	GetReverse(ctx context.Context, provider string, cell int64) (*CacheEntry, error)

	// PutReverse stores (or replaces) the answer for an H3 cell
	PutReverse(ctx context.Context, provider string, cell int64, place Place) error

	// Stats counts stored entries
	Stats(ctx context.Context) (*CacheStats, error)

	// Purge deletes entries created before the cutoff and returns how many were removed
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type sqlCacheRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewCacheRepository creates a cache repository on a DuckDB connection.
func NewCacheRepository(db *sql.DB) CacheRepository {
	return &sqlCacheRepository{db: db, now: time.Now}
}

func (r *sqlCacheRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS geocode_search (
			provider VARCHAR NOT NULL,
			query VARCHAR NOT NULL,
			result_limit INTEGER NOT NULL,
			places VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (provider, query, result_limit)
		);

		CREATE TABLE IF NOT EXISTS geocode_reverse (
			provider VARCHAR NOT NULL,
			h3_cell BIGINT NOT NULL,
			place VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			PRIMARY KEY (provider, h3_cell)
		);
	`)

	return err
}

func (r *sqlCacheRepository) GetSearch(ctx context.Context, provider, query string, limit int) (*CacheEntry, error) {
	var (
		raw       string
		createdAt time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT places, created_at
		FROM geocode_search
		WHERE provider = ? AND query = ? AND result_limit = ?
	`, provider, query, limit).Scan(&raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading search cache: %w", err)
	}

	entry := &CacheEntry{CreatedAt: createdAt}
	if err := json.Unmarshal([]byte(raw), &entry.Places); err != nil {
		return nil, fmt.Errorf("decoding cached places: %w", err)
	}

	return entry, nil
}

func (r *sqlCacheRepository) PutSearch(ctx context.Context, provider, query string, limit int, places []Place) error {
	if places == nil {
		places = []Place{}
	}

	raw, err := json.Marshal(places)
	if err != nil {
		return fmt.Errorf("encoding places: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO geocode_search (provider, query, result_limit, places, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, provider, query, limit, string(raw), r.now().UTC())
	if err != nil {
		return fmt.Errorf("writing search cache: %w", err)
	}

	return nil
}

func (r *sqlCacheRepository) GetReverse(ctx context.Context, provider string, cell int64) (*CacheEntry, error) {
	var (
		raw       string
		createdAt time.Time
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT place, created_at
		FROM geocode_reverse
		WHERE provider = ? AND h3_cell = ?
	`, provider, cell).Scan(&raw, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("reading reverse cache: %w", err)
	}

	var place Place
	if err := json.Unmarshal([]byte(raw), &place); err != nil {
		return nil, fmt.Errorf("decoding cached place: %w", err)
	}

	return &CacheEntry{Places: []Place{place}, CreatedAt: createdAt}, nil
}

func (r *sqlCacheRepository) PutReverse(ctx context.Context, provider string, cell int64, place Place) error {
	raw, err := json.Marshal(place)
	if err != nil {
		return fmt.Errorf("encoding place: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO geocode_reverse (provider, h3_cell, place, created_at)
		VALUES (?, ?, ?, ?)
	`, provider, cell, string(raw), r.now().UTC())
	if err != nil {
		return fmt.Errorf("writing reverse cache: %w", err)
	}

	return nil
}

func (r *sqlCacheRepository) Stats(ctx context.Context) (*CacheStats, error) {
	var (
		stats  CacheStats
		oldest sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT count(*) FROM geocode_search) AS search_entries,
			(SELECT count(*) FROM geocode_reverse) AS reverse_entries,
			(SELECT min(created_at) FROM (
				SELECT created_at FROM geocode_search
				UNION ALL
				SELECT created_at FROM geocode_reverse
			)) AS oldest
	`).Scan(&stats.SearchEntries, &stats.ReverseEntries, &oldest)
	if err != nil {
		return nil, fmt.Errorf("counting cache entries: %w", err)
	}

	if oldest.Valid {
		stats.Oldest = &oldest.Time
	}

	return &stats, nil
}

func (r *sqlCacheRepository) Purge(ctx context.Context, before time.Time) (int64, error) {
	var total int64

	for _, table := range []string{"geocode_search", "geocode_reverse"} {
		res, err := r.db.ExecContext(ctx, "DELETE FROM "+table+" WHERE created_at < ?", before.UTC())
		if err != nil {
			return total, fmt.Errorf("purging %s: %w", table, err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("purging %s: %w", table, err)
		}

		total += n
	}

	return total, nil
}
