// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirkas-siivous/kirkas/pricing"
	"github.com/kirkas-siivous/kirkas/spatial"
)

func newTestSession(g *fakeGeocoder) *Session {
	return NewSession(SessionOptions{
		Geocoder:        g,
		ResolveDebounce: testDebounce,
		SuggestDebounce: testDebounce,
	})
}

func TestSessionDefaults(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	snap := s.Snapshot()

	// 60 m², standard, biweekly apartment without an address
	assert.Equal(t, pricing.Residential, snap.ServiceReceiver)
	assert.Equal(t, 3.5, snap.Estimate.Hours)
	assert.Equal(t, 55.0, snap.Estimate.Rate)
	assert.Equal(t, 0.9, snap.Estimate.Discount)
	assert.Equal(t, 173.0, snap.Estimate.TotalPrice)
	assert.Zero(t, snap.Estimate.DistanceFee)
	assert.Equal(t, pricing.PerMonth, snap.Estimate.BillingPeriod)
	assert.Equal(t, Idle, snap.Status.State)
	assert.Equal(t, NoError, snap.Error)
	assert.Empty(t, snap.Suggestions)
}

func TestSessionRecomputesOnEverySetter(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	var (
		mu    sync.Mutex
		snaps []Snapshot
	)

	cancel := s.OnChange(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()

		snaps = append(snaps, snap)
	})

	s.SetPropertyType(pricing.Office)
	s.SetServiceLevel(pricing.Premium)
	s.SetArea(200)
	s.SetFrequency(pricing.Once)

	cancel()
	s.SetArea(100)

	mu.Lock()
	defer mu.Unlock()

	require.Len(t, snaps, 4)
	assert.Equal(t, pricing.Commercial, snaps[0].ServiceReceiver)

	last := snaps[3]
	assert.Equal(t, 11.0, last.Estimate.Hours)
	assert.Equal(t, 60.0, last.Estimate.Rate)
	assert.Equal(t, 660.0, last.Estimate.TotalPrice)
	assert.Equal(t, pricing.PerVisit, last.Estimate.BillingPeriod)
}

func TestSessionSetAreaClamps(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	s.SetArea(5)
	assert.Equal(t, float64(pricing.MinAreaSqm), s.Snapshot().Input.AreaSqm)

	s.SetArea(1000)
	assert.Equal(t, float64(pricing.MaxAreaSqm), s.Snapshot().Input.AreaSqm)
}

func TestSessionAddsTravelFee(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	s.SetAddress("Rautatientori 1, Helsinki")
	assert.Eventually(t, func() bool { return s.Snapshot().Status.State == Resolved }, waitFor, tick)

	_, fee := spatial.DefaultFeePolicy().Quote(helsinki.Point)

	snap := s.Snapshot()
	assert.Equal(t, fee, snap.Estimate.DistanceFee)
	assert.Equal(t, 173.0, snap.Estimate.BasePrice)
	assert.InDelta(t, 173.0+fee, snap.Estimate.TotalPrice, 1e-9)
	assert.Equal(t, "Rautatientori 1, Helsinki", snap.Input.Address)
}

func TestSessionUnsupportedCountryKeepsPricing(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	s.SetAddress("Rautatientori 1, Helsinki")
	assert.Eventually(t, func() bool { return s.Snapshot().Estimate.DistanceFee > 0 }, waitFor, tick)

	s.SetAddress("Alexanderplatz, Berlin")
	assert.Eventually(t, func() bool { return s.Snapshot().Status.State == Failed }, waitFor, tick)

	snap := s.Snapshot()
	assert.Equal(t, UnsupportedCountry, snap.Error)
	assert.Zero(t, snap.Estimate.DistanceFee)
	assert.Equal(t, 173.0, snap.Estimate.TotalPrice)
}

func TestSessionSelectSuggestion(t *testing.T) {
	g := newFakeGeocoder()
	g.places[tikkurila.DisplayName] = g.places["Tikkurila, Vantaa"]

	s := newTestSession(g)
	defer s.Close()

	require.Error(t, s.SelectSuggestion(0))

	s.SetAddress("Tikk")
	assert.Eventually(t, func() bool { return len(s.Snapshot().Suggestions) == 1 }, waitFor, tick)
	assert.Eventually(t, func() bool { return s.Snapshot().Status.State == Idle }, waitFor, tick, "four characters are not addressable")

	require.NoError(t, s.SelectSuggestion(0))

	snap := s.Snapshot()
	assert.Equal(t, tikkurila.DisplayName, snap.Input.Address)
	assert.Empty(t, snap.Suggestions)

	assert.Eventually(t, func() bool { return s.Snapshot().Status.State == Resolved }, waitFor, tick)
	assert.Equal(t, tikkurila.DisplayName, s.Snapshot().Status.Result.DisplayName)
	assert.Empty(t, s.Snapshot().Suggestions)
}

func TestSessionLocate(t *testing.T) {
	g := newFakeGeocoder()
	g.reverse = &berlin

	s := newTestSession(g)
	defer s.Close()

	err := s.Locate(context.Background(), StaticLocator{Point: &berlin.Point})
	require.ErrorIs(t, err, ErrUnsupportedCountry)

	snap := s.Snapshot()
	assert.Equal(t, berlin.DisplayName, snap.Input.Address)
	assert.Equal(t, UnsupportedCountry, snap.Error)
	assert.Zero(t, snap.Estimate.DistanceFee)

	err = s.Locate(context.Background(), StaticLocator{Denied: true})
	require.ErrorIs(t, err, ErrGeolocationDenied)
	assert.Equal(t, UnsupportedCountry, s.Snapshot().Error, "country outranks geolocation")
	assert.Equal(t, berlin.DisplayName, s.Snapshot().Input.Address)
}

func TestSessionFlush(t *testing.T) {
	s := NewSession(SessionOptions{
		Geocoder:        newFakeGeocoder(),
		ResolveDebounce: time.Hour,
		SuggestDebounce: time.Hour,
	})
	defer s.Close()

	s.SetAddress("Tikkurila, Vantaa")
	assert.Equal(t, Debouncing, s.Snapshot().Status.State)

	s.Flush()
	assert.Equal(t, Resolved, s.Snapshot().Status.State)
}

func TestSessionStartsFromInput(t *testing.T) {
	in := pricing.QuoteInput{
		PropertyType: pricing.House,
		AreaSqm:      400,
		ServiceLevel: pricing.Basic,
		Frequency:    pricing.Weekly,
		Address:      "Tikkurila, Vantaa",
	}

	s := NewSession(SessionOptions{Geocoder: newFakeGeocoder(), ResolveDebounce: testDebounce, Input: &in})
	defer s.Close()

	assert.Equal(t, float64(pricing.MaxAreaSqm), s.Snapshot().Input.AreaSqm)
	assert.Eventually(t, func() bool { return s.Snapshot().Status.State == Resolved }, waitFor, tick)
}

func TestSessionListenerMayEditInput(t *testing.T) {
	s := newTestSession(newFakeGeocoder())
	defer s.Close()

	var (
		mu     sync.Mutex
		snaps  []Snapshot
		edited bool
	)

	s.OnChange(func(snap Snapshot) {
		mu.Lock()
		snaps = append(snaps, snap)
		first := !edited
		edited = true
		mu.Unlock()

		if first {
			s.SetArea(200)
			s.SetAddress("Rautatientori 1, Helsinki")
		}
	})

	s.SetPropertyType(pricing.Office)

	mu.Lock()
	require.GreaterOrEqual(t, len(snaps), 2)
	last := snaps[len(snaps)-1]
	mu.Unlock()

	assert.Equal(t, pricing.Office, last.Input.PropertyType)
	assert.Equal(t, 200.0, last.Input.AreaSqm)
	assert.Equal(t, "Rautatientori 1, Helsinki", last.Input.Address)

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return snaps[len(snaps)-1].Status.State == Resolved
	}, waitFor, tick)
}
