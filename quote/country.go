// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"errors"
	"strings"

	"github.com/kirkas-siivous/kirkas/utils/textutils"
)

// ErrUnsupportedCountry reports an address outside the service area.
var ErrUnsupportedCountry = errors.New("address is outside the service area")

// CountryGate decides whether a resolved address lies in the service area.
type CountryGate struct {
	names map[string]struct{}
	codes map[string]struct{}
}

// DefaultCountryGate accepts Finland under its English and Finnish names.
var DefaultCountryGate = NewCountryGate([]string{"Finland", "Suomi"}, []string{"fi"})

// NewCountryGate builds a gate from country names and ISO 3166-1 alpha-2 codes.
// Names are compared after accent folding and lower-casing.
func NewCountryGate(names, codes []string) *CountryGate {
	g := &CountryGate{
		names: make(map[string]struct{}, len(names)),
		codes: make(map[string]struct{}, len(codes)),
	}

	for _, n := range names {
		if k := textutils.LowerASCIIFolding(strings.TrimSpace(n)); k != "" {
			g.names[k] = struct{}{}
		}
	}

	for _, c := range codes {
		if k := strings.ToLower(strings.TrimSpace(c)); k != "" {
			g.codes[k] = struct{}{}
		}
	}

	return g
}

// Allows reports whether country (a display name, possibly "Suomi / Finland")
// or code belongs to the gate.
func (g *CountryGate) Allows(country, code string) bool {
	if code != "" {
		if _, ok := g.codes[strings.ToLower(strings.TrimSpace(code))]; ok {
			return true
		}
	}

	for part := range strings.SplitSeq(country, "/") {
		if _, ok := g.names[textutils.LowerASCIIFolding(strings.TrimSpace(part))]; ok {
			return true
		}
	}

	return false
}
