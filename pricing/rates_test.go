// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateTable(t *testing.T) {
	tests := []struct {
		receiver ServiceReceiver
		level    ServiceLevel
		want     float64
	}{
		{Residential, Basic, 45},
		{Residential, Standard, 55},
		{Residential, Premium, 65},
		{Commercial, Basic, 40},
		{Commercial, Standard, 50},
		{Commercial, Premium, 60},
		{Commercial, ServiceLevel("platinum"), 0},
	}

	for _, tt := range tests {
		t.Run(string(tt.receiver)+"/"+string(tt.level), func(t *testing.T) {
			assert.InDelta(t, tt.want, Rate(tt.receiver, tt.level), 0)
		})
	}
}

func TestDiscountAndPeriod(t *testing.T) {
	assert.InDelta(t, 1.0, Discount(Once), 0)
	assert.InDelta(t, 0.85, Discount(Weekly), 0)
	assert.InDelta(t, 0.90, Discount(Biweekly), 0)
	assert.InDelta(t, 0.95, Discount(Monthly), 0)
	assert.InDelta(t, 1.0, Discount(Frequency("daily")), 0)

	assert.Equal(t, PerVisit, Period(Once))

	for _, f := range []Frequency{Weekly, Biweekly, Monthly} {
		assert.Equal(t, PerMonth, Period(f))
	}
}

func TestParse(t *testing.T) {
	p, err := ParsePropertyType(" Office ")
	require.NoError(t, err)
	assert.Equal(t, Office, p)

	l, err := ParseServiceLevel("PREMIUM")
	require.NoError(t, err)
	assert.Equal(t, Premium, l)

	f, err := ParseFrequency("biweekly")
	require.NoError(t, err)
	assert.Equal(t, Biweekly, f)

	_, err = ParseFrequency("daily")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "once, weekly, biweekly, monthly")
}
