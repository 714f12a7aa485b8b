// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import "math"

// Area bounds accepted by the calculator, in square meters.
const (
	MinAreaSqm     = 20
	MaxAreaSqm     = 300
	AreaStep       = 5
	DefaultAreaSqm = 60
)

const (
	setupHours  = 1.0  // fixed set-up time per visit
	sqmPerHour  = 25.0 // cleaning speed
	minHours    = 2.0
	hoursFactor = 2.0 // round to the nearest half hour
)

// QuoteInput carries the axes a customer can change. The service receiver is
// not stored; it is always derived from PropertyType.
type QuoteInput struct {
	PropertyType PropertyType `json:"property_type"`
	AreaSqm      float64      `json:"area_sqm"`
	ServiceLevel ServiceLevel `json:"service_level"`
	Frequency    Frequency    `json:"frequency"`
	Address      string       `json:"address"`
}

// DefaultQuoteInput returns the values the calculator starts with.
func DefaultQuoteInput() QuoteInput {
	return QuoteInput{
		PropertyType: Apartment,
		AreaSqm:      DefaultAreaSqm,
		ServiceLevel: Standard,
		Frequency:    Biweekly,
	}
}

// ServiceReceiver returns the receiver implied by the property type.
func (in QuoteInput) ServiceReceiver() ServiceReceiver {
	return ReceiverFor(in.PropertyType)
}

// PriceEstimate is fully derived from a QuoteInput and a travel fee.
type PriceEstimate struct {
	Hours         float64       `json:"hours"`
	Rate          float64       `json:"rate"`
	Discount      float64       `json:"discount"`
	BasePrice     float64       `json:"base_price"`
	DistanceFee   float64       `json:"distance_fee"`
	TotalPrice    float64       `json:"total_price"`
	BillingPeriod BillingPeriod `json:"billing_period"`
}

// ClampArea snaps an area to the calculator's domain.
func ClampArea(area float64) float64 {
	return math.Min(MaxAreaSqm, math.Max(MinAreaSqm, area))
}

// EstimateHours returns the visit duration for an area and tier, rounded to
// the nearest half hour and never below two hours.
func EstimateHours(areaSqm float64, level ServiceLevel) float64 {
	hours := (setupHours + areaSqm/sqmPerHour) * TierMultiplier(level)

	return math.Max(minHours, math.Round(hours*hoursFactor)/hoursFactor)
}

// Estimate computes the quote for in with the given travel fee.
//
// The hourly component is rounded to whole euros. The fee is added at its own
// precision and the total is only rounded to cents, so
// TotalPrice == BasePrice + DistanceFee holds for every fee the tariff can
// produce.
func Estimate(in QuoteInput, distanceFee float64) PriceEstimate {
	hours := EstimateHours(in.AreaSqm, in.ServiceLevel)
	rate := Rate(in.ServiceReceiver(), in.ServiceLevel)
	discount := Discount(in.Frequency)
	base := math.Round(hours * rate * discount)

	return PriceEstimate{
		Hours:         hours,
		Rate:          rate,
		Discount:      discount,
		BasePrice:     base,
		DistanceFee:   distanceFee,
		TotalPrice:    roundCents(base + distanceFee),
		BillingPeriod: Period(in.Frequency),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
