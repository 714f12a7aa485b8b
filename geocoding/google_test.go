// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kirkas-siivous/kirkas/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const googleSearchBody = `{
  "status": "OK",
  "results": [
    {
      "formatted_address": "Santaradantie 7, 01370 Vantaa, Finland",
      "geometry": {"location": {"lat": 60.293358, "lng": 25.037989}, "location_type": "ROOFTOP"},
      "address_components": [
        {"long_name": "Vantaa", "short_name": "Vantaa", "types": ["locality", "political"]},
        {"long_name": "Finland", "short_name": "FI", "types": ["country", "political"]}
      ]
    }
  ]
}`

func newGoogleTestServer(t *testing.T, handler http.HandlerFunc) *GoogleMapsGeocoder {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewGoogleMapsGeocoder(GoogleMapsOptions{
		APIKey:     "test-key",
		Endpoint:   srv.URL,
		Region:     "fi",
		HTTPClient: srv.Client(),
	})
}

func TestGoogleMapsSearch(t *testing.T) {
	g := newGoogleTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Santaradantie 7", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "fi", r.URL.Query().Get("region"))

		_, _ = w.Write([]byte(googleSearchBody))
	})

	places, err := g.Search(context.Background(), SearchRequest{Query: "Santaradantie 7", Limit: 1})
	require.NoError(t, err)
	require.Len(t, places, 1)
	assert.Equal(t, "Finland", places[0].Country)
	assert.Equal(t, "fi", places[0].CountryCode)
	assert.Equal(t, spatial.Point{Lat: 60.293358, Lng: 25.037989}, places[0].Point)
}

func TestGoogleMapsZeroResults(t *testing.T) {
	g := newGoogleTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	places, err := g.Search(context.Background(), SearchRequest{Query: "qwertyuiop"})
	require.NoError(t, err)
	assert.Empty(t, places)

	_, err = g.Reverse(context.Background(), ReverseRequest{Point: spatial.Point{Lat: 0, Lng: -30}})
	assert.True(t, IsNotFoundError(err))
}

func TestGoogleMapsStatusErrors(t *testing.T) {
	tests := []struct {
		status string
		want   ErrorType
	}{
		{"OVER_QUERY_LIMIT", ErrorTypeQuotaExceeded},
		{"REQUEST_DENIED", ErrorTypeQuotaExceeded},
		{"INVALID_REQUEST", ErrorTypeInvalidRequest},
		{"UNKNOWN_ERROR", ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			g := newGoogleTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status": "` + tt.status + `", "results": []}`))
			})

			_, err := g.Search(context.Background(), SearchRequest{Query: "vantaa"})
			require.Error(t, err)
			assert.Equal(t, tt.want, TypeOf(err))
		})
	}
}

func TestGoogleMapsReverse(t *testing.T) {
	g := newGoogleTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "60.293358,25.037989", r.URL.Query().Get("latlng"))

		_, _ = w.Write([]byte(googleSearchBody))
	})

	place, err := g.Reverse(context.Background(), ReverseRequest{Point: spatial.Office})
	require.NoError(t, err)
	assert.Equal(t, "Santaradantie 7, 01370 Vantaa, Finland", place.DisplayName)
}
