// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/spatial"
)

const (
	testDebounce = 10 * time.Millisecond
	waitFor      = 2 * time.Second
	tick         = 5 * time.Millisecond
)

var (
	helsinki = geocoding.Place{
		DisplayName: "Rautatientori, Kluuvi, Helsinki, Suomi / Finland",
		Point:       spatial.Point{Lat: 60.1710, Lng: 24.9430},
		Country:     "Suomi / Finland",
		CountryCode: "fi",
	}
	tikkurila = geocoding.Place{
		DisplayName: "Tikkurila, Vantaa, Suomi / Finland",
		Point:       spatial.Point{Lat: 60.2925, Lng: 25.0440},
		Country:     "Suomi / Finland",
		CountryCode: "fi",
	}
	berlin = geocoding.Place{
		DisplayName: "Alexanderplatz, Mitte, Berlin, Deutschland",
		Point:       spatial.Point{Lat: 52.5219, Lng: 13.4132},
		Country:     "Deutschland",
		CountryCode: "de",
	}
)

// fakeGeocoder answers from fixed tables. A query with a gate blocks until
// the gate is closed.
type fakeGeocoder struct {
	mu         sync.Mutex
	places     map[string][]geocoding.Place
	errs       map[string]error
	gates      map[string]chan struct{}
	reverse    *geocoding.Place
	reverseErr error
	searches   []geocoding.SearchRequest
	reverses   int
}

func newFakeGeocoder() *fakeGeocoder {
	return &fakeGeocoder{
		places: map[string][]geocoding.Place{
			"Rautatientori 1, Helsinki": {helsinki},
			"Tikkurila, Vantaa":         {tikkurila},
			"Alexanderplatz, Berlin":    {berlin},
			"Hel":                       {helsinki, tikkurila},
			"Tikk":                      {tikkurila},
		},
		errs:  map[string]error{},
		gates: map[string]chan struct{}{},
	}
}

func (f *fakeGeocoder) gate(query string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan struct{})
	f.gates[query] = ch

	return ch
}

func (f *fakeGeocoder) setError(query string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.errs[query] = err
}

func (f *fakeGeocoder) Search(ctx context.Context, req geocoding.SearchRequest) ([]geocoding.Place, error) {
	f.mu.Lock()
	f.searches = append(f.searches, req)
	gate := f.gates[req.Query]
	places := f.places[req.Query]
	err := f.errs[req.Query]
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err != nil {
		return nil, err
	}

	if len(places) > req.Limit && req.Limit > 0 {
		places = places[:req.Limit]
	}

	return slices.Clone(places), nil
}

func (f *fakeGeocoder) Reverse(_ context.Context, _ geocoding.ReverseRequest) (*geocoding.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.reverses++
	if f.reverseErr != nil {
		return nil, f.reverseErr
	}

	if f.reverse == nil {
		return nil, &geocoding.GeocodingError{Type: geocoding.ErrorTypeNotFound, Message: "nothing here"}
	}

	place := *f.reverse

	return &place, nil
}

func (f *fakeGeocoder) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, 0, len(f.searches))
	for _, r := range f.searches {
		out = append(out, r.Query)
	}

	return out
}

func (f *fakeGeocoder) lastRequest() geocoding.SearchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.searches[len(f.searches)-1]
}

func newTestResolver(g geocoding.Geocoder) *Resolver {
	return NewResolver(ResolverOptions{Geocoder: g, Debounce: testDebounce})
}
