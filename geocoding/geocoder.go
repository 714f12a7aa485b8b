// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package geocoding resolves free-text addresses to coordinates and back
// through external providers.
package geocoding

import (
	"context"

	"github.com/kirkas-siivous/kirkas/spatial"
)

// Place is a single geocoding match.
type Place struct {
	DisplayName string        `json:"display_name"`
	Point       spatial.Point `json:"point"`
	Country     string        `json:"country"`
	CountryCode string        `json:"country_code"`
}

// SearchRequest is a forward geocoding query.
type SearchRequest struct {
	Query          string
	AddressDetails bool
	Limit          int
}

// ReverseRequest is a reverse geocoding query.
type ReverseRequest struct {
	Point          spatial.Point
	AddressDetails bool
}

// Geocoder interface for different geocoding providers.
//
// Search returns matches in provider order; no match is an empty slice and a
// nil error. Reverse returns an ErrorTypeNotFound error when nothing is there.
type Geocoder interface {
	Search(ctx context.Context, req SearchRequest) ([]Place, error)
	Reverse(ctx context.Context, req ReverseRequest) (*Place, error)
}

// Provider names.
const (
	ProviderNominatim  = "nominatim"
	ProviderGoogleMaps = "google_maps"
)

const (
	// DefaultLimit is used when a SearchRequest does not set one.
	DefaultLimit = 5
	maxLimit     = 40
)

func effectiveLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultLimit
	case limit > maxLimit:
		return maxLimit
	default:
		return limit
	}
}
