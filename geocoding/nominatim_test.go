// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/kirkas-siivous/kirkas/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const nominatimSearchBody = `[
  {
    "place_id": 123,
    "lat": "60.2933580",
    "lon": "25.0379890",
    "display_name": "7, Santaradantie, Vantaa, Finland",
    "address": {"road": "Santaradantie", "city": "Vantaa", "country": "Finland", "country_code": "fi"}
  },
  {
    "place_id": 456,
    "lat": "60.1699",
    "lon": "24.9384",
    "display_name": "Helsinki, Finland",
    "address": {"city": "Helsinki", "country": "Finland", "country_code": "fi"}
  }
]`

func newNominatimTestServer(t *testing.T, handler http.HandlerFunc) *NominatimGeocoder {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewNominatimGeocoder(NominatimOptions{
		BaseURL:        srv.URL,
		AcceptLanguage: "en",
		HTTPClient:     srv.Client(),
	})
}

func TestNominatimSearch(t *testing.T) {
	g := newNominatimTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "santaradantie 7", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("addressdetails"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "en", r.URL.Query().Get("accept-language"))

		_, _ = w.Write([]byte(nominatimSearchBody))
	})

	places, err := g.Search(context.Background(), SearchRequest{Query: "santaradantie 7", AddressDetails: true, Limit: 5})
	require.NoError(t, err)

	expected := []Place{
		{
			DisplayName: "7, Santaradantie, Vantaa, Finland",
			Point:       spatial.Point{Lat: 60.293358, Lng: 25.037989},
			Country:     "Finland",
			CountryCode: "fi",
		},
		{
			DisplayName: "Helsinki, Finland",
			Point:       spatial.Point{Lat: 60.1699, Lng: 24.9384},
			Country:     "Finland",
			CountryCode: "fi",
		},
	}

	if diff := cmp.Diff(expected, places); diff != "" {
		t.Errorf("places mismatch (-expected +got):\n%s", diff)
	}
}

func TestNominatimSearchEmpty(t *testing.T) {
	g := newNominatimTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	places, err := g.Search(context.Background(), SearchRequest{Query: "nowhere at all"})
	require.NoError(t, err)
	assert.Empty(t, places)
}

func TestNominatimSearchHTTPErrors(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadGateway, ErrorTypeNetworkError},
		{http.StatusInternalServerError, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			g := newNominatimTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := g.Search(context.Background(), SearchRequest{Query: "vantaa"})
			require.Error(t, err)
			assert.Equal(t, tt.want, TypeOf(err))
		})
	}
}

func TestNominatimSearchMalformed(t *testing.T) {
	g := newNominatimTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"lat": "north", "lon": "25"}]`))
	})

	_, err := g.Search(context.Background(), SearchRequest{Query: "vantaa"})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeUnknown, TypeOf(err))
}

func TestNominatimUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	g := NewNominatimGeocoder(NominatimOptions{BaseURL: url, HTTPClient: &http.Client{Timeout: time.Second}})

	_, err := g.Search(context.Background(), SearchRequest{Query: "vantaa"})
	require.Error(t, err)
	assert.Contains(t, []ErrorType{ErrorTypeNetworkError, ErrorTypeTimeout}, TypeOf(err))
}

func TestNominatimReverse(t *testing.T) {
	g := newNominatimTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "60.293358", r.URL.Query().Get("lat"))
		assert.Equal(t, "25.037989", r.URL.Query().Get("lon"))

		_, _ = w.Write([]byte(`{
			"lat": "60.2933", "lon": "25.0379",
			"display_name": "Santaradantie 7, Vantaa, Suomi",
			"address": {"country": "Suomi", "country_code": "FI"}
		}`))
	})

	place, err := g.Reverse(context.Background(), ReverseRequest{Point: spatial.Office, AddressDetails: true})
	require.NoError(t, err)
	assert.Equal(t, "Santaradantie 7, Vantaa, Suomi", place.DisplayName)
	assert.Equal(t, "Suomi", place.Country)
	assert.Equal(t, "fi", place.CountryCode)
}

func TestNominatimReverseNothingThere(t *testing.T) {
	g := newNominatimTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"error": "Unable to geocode"}`))
	})

	_, err := g.Reverse(context.Background(), ReverseRequest{Point: spatial.Point{Lat: 0, Lng: -30}})
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestNominatimRateLimiter(t *testing.T) {
	var calls []time.Time

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls = append(calls, time.Now())
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	g := NewNominatimGeocoder(NominatimOptions{BaseURL: srv.URL, MinInterval: 50 * time.Millisecond})

	for range 3 {
		_, err := g.Search(context.Background(), SearchRequest{Query: "vantaa"})
		require.NoError(t, err)
	}

	require.Len(t, calls, 3)
	assert.GreaterOrEqual(t, calls[2].Sub(calls[0]), 90*time.Millisecond)
}
