// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package pricing holds the rate table and the pure quote computation.
package pricing

import (
	"fmt"
	"strings"
)

// PropertyType is the kind of premises to be cleaned.
type PropertyType string

// Property types.
const (
	Apartment PropertyType = "apartment"
	House     PropertyType = "house"
	Office    PropertyType = "office"
)

// ServiceReceiver selects the residential or commercial rate column.
type ServiceReceiver string

// Service receivers.
const (
	Residential ServiceReceiver = "residential"
	Commercial  ServiceReceiver = "commercial"
)

// ServiceLevel is the cleaning tier.
type ServiceLevel string

// Service levels.
const (
	Basic    ServiceLevel = "basic"
	Standard ServiceLevel = "standard"
	Premium  ServiceLevel = "premium"
)

// Frequency is how often the visit repeats.
type Frequency string

// Frequencies.
const (
	Once     Frequency = "once"
	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
)

// BillingPeriod tells whether a price is charged per visit or per month.
type BillingPeriod string

// Billing periods.
const (
	PerVisit BillingPeriod = "perVisit"
	PerMonth BillingPeriod = "perMonth"
)

var (
	propertyTypes = []PropertyType{Apartment, House, Office}
	serviceLevels = []ServiceLevel{Basic, Standard, Premium}
	frequencies   = []Frequency{Once, Weekly, Biweekly, Monthly}
)

// hourly rates in euros.
var rates = map[ServiceReceiver]map[ServiceLevel]float64{
	Residential: {
		Basic:    45,
		Standard: 55,
		Premium:  65,
	},
	Commercial: {
		Basic:    40,
		Standard: 50,
		Premium:  60,
	},
}

// lower factor is cheaper; recurring visits get a discount.
var discounts = map[Frequency]float64{
	Once:     1.0,
	Weekly:   0.85,
	Biweekly: 0.90,
	Monthly:  0.95,
}

// deeper cleaning takes longer.
var tierMultipliers = map[ServiceLevel]float64{
	Basic:    0.9,
	Standard: 1.0,
	Premium:  1.2,
}

// ReceiverFor derives the service receiver from the property type.
func ReceiverFor(p PropertyType) ServiceReceiver {
	if p == Office {
		return Commercial
	}

	return Residential
}

// Rate returns the hourly rate for a receiver and level, or 0 if either is unknown.
func Rate(receiver ServiceReceiver, level ServiceLevel) float64 {
	return rates[receiver][level]
}

// Discount returns the multiplicative frequency discount. Unknown frequencies
// carry no discount.
func Discount(f Frequency) float64 {
	if d, ok := discounts[f]; ok {
		return d
	}

	return 1.0
}

// TierMultiplier returns the duration multiplier for a service level.
func TierMultiplier(level ServiceLevel) float64 {
	if m, ok := tierMultipliers[level]; ok {
		return m
	}

	return 1.0
}

// Period returns the billing period implied by a frequency.
func Period(f Frequency) BillingPeriod {
	if f == Once {
		return PerVisit
	}

	return PerMonth
}

// PropertyTypes lists the property types in display order.
func PropertyTypes() []PropertyType { return append([]PropertyType(nil), propertyTypes...) }

// ServiceLevels lists the service levels in display order.
func ServiceLevels() []ServiceLevel { return append([]ServiceLevel(nil), serviceLevels...) }

// Frequencies lists the frequencies in display order.
func Frequencies() []Frequency { return append([]Frequency(nil), frequencies...) }

// ParsePropertyType parses a property type name, case-insensitively.
func ParsePropertyType(s string) (PropertyType, error) {
	return parseEnum(s, propertyTypes, "property type")
}

// ParseServiceLevel parses a service level name, case-insensitively.
func ParseServiceLevel(s string) (ServiceLevel, error) {
	return parseEnum(s, serviceLevels, "service level")
}

// ParseFrequency parses a frequency name, case-insensitively.
func ParseFrequency(s string) (Frequency, error) {
	return parseEnum(s, frequencies, "frequency")
}

func parseEnum[T ~string](s string, valid []T, what string) (T, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, v := range valid {
		if string(v) == s {
			return v, nil
		}
	}

	names := make([]string, len(valid))
	for i, v := range valid {
		names[i] = string(v)
	}

	var zero T

	return zero, fmt.Errorf("invalid %s %q (expected one of %s)", what, s, strings.Join(names, ", "))
}
