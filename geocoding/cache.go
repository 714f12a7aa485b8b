// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirkas-siivous/kirkas/spatial"
	"github.com/kirkas-siivous/kirkas/utils/textutils"
)

// DefaultCacheTTL is how long provider answers are reused.
const DefaultCacheTTL = 30 * 24 * time.Hour

// CachingGeocoder answers from a CacheRepository before asking the provider.
// Empty search results are cached too; errors never are.
type CachingGeocoder struct {
	next     Geocoder
	repo     CacheRepository
	provider string
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewCachingGeocoder wraps next with repo. A non-positive ttl uses DefaultCacheTTL.
func NewCachingGeocoder(next Geocoder, repo CacheRepository, provider string, ttl time.Duration, logger *slog.Logger) *CachingGeocoder {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &CachingGeocoder{
		next:     next,
		repo:     repo,
		provider: provider,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

func (g *CachingGeocoder) fresh(entry *CacheEntry) bool {
	return entry != nil && g.now().Sub(entry.CreatedAt) < g.ttl
}

// Search implements Geocoder.
func (g *CachingGeocoder) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	key := textutils.NormalizeQuery(req.Query)
	if key == "" {
		return g.next.Search(ctx, req)
	}

	limit := effectiveLimit(req.Limit)

	entry, err := g.repo.GetSearch(ctx, g.provider, key, limit)
	if err != nil {
		g.logger.WarnContext(ctx, "geocode cache read failed", "op", opSearch, "error", err)
	}

	if g.fresh(entry) {
		cacheTotal.WithLabelValues(opSearch, "hit").Inc()

		return entry.Places, nil
	}

	cacheTotal.WithLabelValues(opSearch, "miss").Inc()

	places, err := g.next.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := g.repo.PutSearch(ctx, g.provider, key, limit, places); err != nil {
		g.logger.WarnContext(ctx, "geocode cache write failed", "op", opSearch, "error", err)
	}

	return places, nil
}

// Reverse implements Geocoder.
func (g *CachingGeocoder) Reverse(ctx context.Context, req ReverseRequest) (*Place, error) {
	cell, err := spatial.Cell(req.Point, spatial.LookupResolution)
	if err != nil {
		return g.next.Reverse(ctx, req)
	}

	entry, err := g.repo.GetReverse(ctx, g.provider, cell)
	if err != nil {
		g.logger.WarnContext(ctx, "geocode cache read failed", "op", opReverse, "error", err)
	}

	if g.fresh(entry) && len(entry.Places) == 1 {
		cacheTotal.WithLabelValues(opReverse, "hit").Inc()

		place := entry.Places[0]

		return &place, nil
	}

	cacheTotal.WithLabelValues(opReverse, "miss").Inc()

	place, err := g.next.Reverse(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := g.repo.PutReverse(ctx, g.provider, cell, *place); err != nil {
		g.logger.WarnContext(ctx, "geocode cache write failed", "op", opReverse, "error", err)
	}

	return place, nil
}
