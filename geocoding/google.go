// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultGoogleMapsURL is the Geocoding API endpoint.
const DefaultGoogleMapsURL = "https://maps.googleapis.com/maps/api/geocode/json"

// GoogleMapsOptions configures a GoogleMapsGeocoder.
type GoogleMapsOptions struct {
	APIKey   string
	Endpoint string
	Region   string // ccTLD used to bias results, e.g. "fi"
	Language string

	HTTPClient *http.Client
}

// GoogleMapsGeocoder uses Google Maps Geocoding API.
type GoogleMapsGeocoder struct {
	apiKey     string
	endpoint   string
	region     string
	language   string
	httpClient *http.Client
}

// NewGoogleMapsGeocoder creates a new Google Maps geocoder.
func NewGoogleMapsGeocoder(opts GoogleMapsOptions) *GoogleMapsGeocoder {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultGoogleMapsURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleMapsGeocoder{
		apiKey:     opts.APIKey,
		endpoint:   endpoint,
		region:     opts.Region,
		language:   opts.Language,
		httpClient: client,
	}
}

type googleMapsResult struct {
	AddressComponents []struct {
		LongName  string   `json:"long_name"`
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
		LocationType string `json:"location_type"` // ROOFTOP, RANGE_INTERPOLATED, GEOMETRIC_CENTER, APPROXIMATE
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

type googleMapsResponse struct {
	Results      []googleMapsResult `json:"results"`
	Status       string             `json:"status"` // OK, ZERO_RESULTS, etc.
	ErrorMessage string             `json:"error_message"`
}

func (r *googleMapsResult) toPlace() Place {
	place := Place{DisplayName: r.FormattedAddress}
	place.Point.Lat = r.Geometry.Location.Lat
	place.Point.Lng = r.Geometry.Location.Lng

	for _, c := range r.AddressComponents {
		if slices.Contains(c.Types, "country") {
			place.Country = c.LongName
			place.CountryCode = strings.ToLower(c.ShortName)

			break
		}
	}

	return place
}

// Search implements Geocoder.
func (g *GoogleMapsGeocoder) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	params := url.Values{}
	params.Set("address", req.Query)

	gmResp, err := g.get(ctx, params)
	if err != nil {
		return nil, err
	}

	limit := effectiveLimit(req.Limit)
	places := make([]Place, 0, min(limit, len(gmResp.Results)))

	for i := range gmResp.Results {
		if len(places) == limit {
			break
		}

		places = append(places, gmResp.Results[i].toPlace())
	}

	return places, nil
}

// Reverse implements Geocoder.
func (g *GoogleMapsGeocoder) Reverse(ctx context.Context, req ReverseRequest) (*Place, error) {
	params := url.Values{}
	params.Set("latlng", fmt.Sprintf("%f,%f", req.Point.Lat, req.Point.Lng))

	gmResp, err := g.get(ctx, params)
	if err != nil {
		return nil, err
	}

	if len(gmResp.Results) == 0 {
		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("google maps: nothing found at %s", req.Point),
		}
	}

	place := gmResp.Results[0].toPlace()

	return &place, nil
}

func (g *GoogleMapsGeocoder) get(ctx context.Context, params url.Values) (*googleMapsResponse, error) {
	params.Set("key", g.apiKey)

	if g.region != "" {
		params.Set("region", g.region)
	}

	if g.language != "" {
		params.Set("language", g.language)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "google maps: building request", Err: err}
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err, ProviderGoogleMaps)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ClassifyHTTPError(resp.StatusCode, ProviderGoogleMaps)
	}

	var gmResp googleMapsResponse
	if err := json.NewDecoder(resp.Body).Decode(&gmResp); err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "google maps: decoding response", Err: err}
	}

	if err := classifyGoogleStatus(gmResp.Status, gmResp.ErrorMessage); err != nil {
		return nil, err
	}

	return &gmResp, nil
}

// classifyGoogleStatus maps the API's status field. ZERO_RESULTS is not an
// error: callers see an empty result list.
func classifyGoogleStatus(status, detail string) error {
	msg := "google maps status: " + status
	if detail != "" {
		msg += " (" + detail + ")"
	}

	switch status {
	case "OK", "ZERO_RESULTS":
		return nil
	case "OVER_QUERY_LIMIT", "OVER_DAILY_LIMIT":
		return &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: msg}
	case "REQUEST_DENIED":
		return &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: msg}
	case "INVALID_REQUEST":
		return &GeocodingError{Type: ErrorTypeInvalidRequest, Message: msg}
	default:
		return &GeocodingError{Type: ErrorTypeUnknown, Message: msg}
	}
}
