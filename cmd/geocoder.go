// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/duckdb/duckdb-go/v2" // register duckdb driver

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/utils/httputils"
)

// openCache opens the DuckDB response cache. It returns a nil db when the
// cache is disabled.
func openCache() (*sql.DB, geocoding.CacheRepository, error) {
	if cfg.Cache.Path == "" {
		return nil, nil, nil
	}

	db, err := sql.Open("duckdb", cfg.Cache.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("opening cache: %w", err)
	}

	repo := geocoding.NewCacheRepository(db)
	if err := repo.CreateSchema(); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return db, repo, nil
}

// newGeocoder assembles the configured provider stack. The returned close
// function releases the cache.
func newGeocoder(ctx context.Context) (geocoding.Geocoder, func(), error) {
	db, repo, err := openCache()
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if db != nil {
			db.Close()
		}
	}

	client := httputils.NewClient(httputils.ClientOptions{
		Timeout:   cfg.Quote.LookupTimeout,
		UserAgent: cfg.Geocoder.UserAgent,
		Trace:     cfg.HTTPTrace,
		Logger:    logger,
	})

	gc := cfg.Geocoder
	opts := geocoding.Options{
		Provider: gc.Provider,
		Nominatim: geocoding.NominatimOptions{
			BaseURL:        gc.NominatimURL,
			AcceptLanguage: gc.AcceptLanguage,
			CountryCodes:   cfg.Quote.CountryCodes,
			MinInterval:    gc.MinInterval,
			HTTPClient:     client,
		},
		Google: geocoding.GoogleMapsOptions{
			APIKey:     gc.GoogleAPIKey,
			Region:     firstOr(cfg.Quote.CountryCodes, ""),
			Language:   firstOr(strings.Split(gc.AcceptLanguage, ","), ""),
			HTTPClient: client,
		},
		Cache:    repo,
		CacheTTL: cfg.Cache.TTL,
		Logger:   logger,
	}

	if opts.Provider != geocoding.ProviderNominatim && opts.Google.APIKey == "" {
		logger.InfoContext(ctx, "looking up Maps API key through default credentials", "key", gc.GoogleKeyName)

		key, err := geocoding.APIKeyFromADC(ctx, gc.GoogleProject, gc.GoogleKeyName)
		if err != nil {
			closeFn()

			return nil, nil, fmt.Errorf("resolving Maps API key: %w", err)
		}

		opts.Google.APIKey = key
	}

	g, err := geocoding.New(opts)
	if err != nil {
		closeFn()

		return nil, nil, err
	}

	return g, closeFn, nil
}

func firstOr(values []string, fallback string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return fallback
}
