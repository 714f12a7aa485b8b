// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"fmt"
	"log/slog"
	"time"
)

// Options selects and assembles a provider stack.
type Options struct {
	Provider  string
	Nominatim NominatimOptions
	Google    GoogleMapsOptions

	// Cache enables response caching when not nil
	Cache    CacheRepository
	CacheTTL time.Duration

	Logger *slog.Logger
}

// New builds provider -> metrics -> cache, outermost last.
func New(opts Options) (Geocoder, error) {
	var g Geocoder

	switch opts.Provider {
	case "", ProviderNominatim:
		opts.Provider = ProviderNominatim
		g = NewNominatimGeocoder(opts.Nominatim)
	case ProviderGoogleMaps, "google":
		if opts.Google.APIKey == "" {
			return nil, fmt.Errorf("provider %s requires an API key", ProviderGoogleMaps)
		}

		opts.Provider = ProviderGoogleMaps
		g = NewGoogleMapsGeocoder(opts.Google)
	default:
		return nil, fmt.Errorf("unknown geocoding provider %q", opts.Provider)
	}

	g = NewInstrumentedGeocoder(g, opts.Provider)

	if opts.Cache != nil {
		g = NewCachingGeocoder(g, opts.Cache, opts.Provider, opts.CacheTTL, opts.Logger)
	}

	return g, nil
}
