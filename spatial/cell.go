// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"fmt"

	"github.com/uber/h3-go/v4"
)

// LookupResolution is the H3 resolution used to bucket reverse lookups
// (cells of roughly 25 m across).
const LookupResolution = 11

// Cell returns the H3 cell containing p at the given resolution.
func Cell(p Point, res int) (int64, error) {
	cell, err := h3.LatLngToCell(h3.NewLatLng(p.Lat, p.Lng), res)
	if err != nil {
		return 0, fmt.Errorf("error converting to h3 cell at res %d: %w", res, err)
	}

	return int64(cell), nil
}
