// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import "math"

// Defaults for the travel surcharge.
const (
	DefaultFreeRadiusKm = 10.0
	DefaultPerKmRate    = 0.50
)

// Office is the fixed origin of every trip: Santaradantie 7, 01370 Vantaa.
var Office = Point{Lat: 60.293358, Lng: 25.037989}

// TravelFee returns the surcharge for a trip of distanceKm. Trips inside the
// free radius cost nothing; beyond it every started kilometer is billed at
// perKmRate. The ceiling applies to the excess distance, not to the fee.
func TravelFee(distanceKm, freeRadiusKm, perKmRate float64) float64 {
	if distanceKm <= freeRadiusKm {
		return 0
	}

	extraKm := math.Ceil(distanceKm - freeRadiusKm)

	return extraKm * perKmRate
}

// FeePolicy bundles the origin and tariff used to price travel.
type FeePolicy struct {
	Origin       Point   `json:"origin"`
	FreeRadiusKm float64 `json:"free_radius_km"`
	PerKmRate    float64 `json:"per_km_rate"`
}

// DefaultFeePolicy returns the policy for the Vantaa office.
func DefaultFeePolicy() FeePolicy {
	return FeePolicy{
		Origin:       Office,
		FreeRadiusKm: DefaultFreeRadiusKm,
		PerKmRate:    DefaultPerKmRate,
	}
}

// Quote returns the distance from the origin to p and the resulting fee.
func (f FeePolicy) Quote(p Point) (distanceKm, fee float64) {
	distanceKm = DistanceKm(f.Origin, p)

	return distanceKm, TravelFee(distanceKm, f.FreeRadiusKm, f.PerKmRate)
}
