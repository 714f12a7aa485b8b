// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultNominatimURL is the public OpenStreetMap instance.
const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// NominatimOptions configures a NominatimGeocoder.
type NominatimOptions struct {
	// BaseURL of the instance, without trailing slash
	BaseURL string

	// AcceptLanguage selects the language of display names and countries
	AcceptLanguage string

	// CountryCodes restricts searches to ISO 3166-1 alpha-2 codes; empty means worldwide
	CountryCodes []string

	// MinInterval between two requests; the public instance allows one per second
	MinInterval time.Duration

	// HTTPClient used for requests; it must set a User-Agent (see httputils.NewClient)
	HTTPClient *http.Client
}

// NominatimGeocoder uses the OpenStreetMap Nominatim API.
type NominatimGeocoder struct {
	baseURL        string
	acceptLanguage string
	countryCodes   string
	limiter        *rate.Limiter
	httpClient     *http.Client
}

// NewNominatimGeocoder creates a new Nominatim geocoder.
func NewNominatimGeocoder(opts NominatimOptions) *NominatimGeocoder {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}

	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	return &NominatimGeocoder{
		baseURL:        baseURL,
		acceptLanguage: opts.AcceptLanguage,
		countryCodes:   strings.ToLower(strings.Join(opts.CountryCodes, ",")),
		limiter:        rate.NewLimiter(limit, 1),
		httpClient:     client,
	}
}

type nominatimAddress struct {
	Country     string `json:"country"`
	CountryCode string `json:"country_code"`
}

type nominatimPlace struct {
	DisplayName string            `json:"display_name"`
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Address     *nominatimAddress `json:"address"`
	Error       string            `json:"error"`
}

func (p *nominatimPlace) toPlace() (Place, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing latitude %q: %w", p.Lat, err)
	}

	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return Place{}, fmt.Errorf("parsing longitude %q: %w", p.Lon, err)
	}

	place := Place{DisplayName: p.DisplayName}
	place.Point.Lat = lat
	place.Point.Lng = lon

	if p.Address != nil {
		place.Country = p.Address.Country
		place.CountryCode = strings.ToLower(p.Address.CountryCode)
	}

	return place, nil
}

func (g *NominatimGeocoder) params(addressDetails bool) url.Values {
	params := url.Values{}
	params.Set("format", "json")

	if addressDetails {
		params.Set("addressdetails", "1")
	}

	if g.acceptLanguage != "" {
		params.Set("accept-language", g.acceptLanguage)
	}

	return params
}

// Search implements Geocoder.
func (g *NominatimGeocoder) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	params := g.params(req.AddressDetails)
	params.Set("q", req.Query)
	params.Set("limit", strconv.Itoa(effectiveLimit(req.Limit)))

	if g.countryCodes != "" {
		params.Set("countrycodes", g.countryCodes)
	}

	var raw []nominatimPlace
	if err := g.get(ctx, "/search", params, &raw); err != nil {
		return nil, err
	}

	places := make([]Place, 0, len(raw))

	for i := range raw {
		place, err := raw[i].toPlace()
		if err != nil {
			return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "nominatim: malformed result", Err: err}
		}

		places = append(places, place)
	}

	return places, nil
}

// Reverse implements Geocoder.
func (g *NominatimGeocoder) Reverse(ctx context.Context, req ReverseRequest) (*Place, error) {
	params := g.params(req.AddressDetails)
	params.Set("lat", strconv.FormatFloat(req.Point.Lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(req.Point.Lng, 'f', -1, 64))

	var raw nominatimPlace
	if err := g.get(ctx, "/reverse", params, &raw); err != nil {
		return nil, err
	}

	// Nominatim answers 200 with {"error": "Unable to geocode"} for empty spots
	if raw.Error != "" || raw.Address == nil {
		msg := raw.Error
		if msg == "" {
			msg = "no address details"
		}

		return nil, &GeocodingError{
			Type:    ErrorTypeNotFound,
			Message: fmt.Sprintf("nominatim: nothing found at %s: %s", req.Point, msg),
		}
	}

	place, err := raw.toPlace()
	if err != nil {
		return nil, &GeocodingError{Type: ErrorTypeUnknown, Message: "nominatim: malformed result", Err: err}
	}

	return &place, nil
}

func (g *NominatimGeocoder) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return classifyTransportError(err, ProviderNominatim)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return &GeocodingError{Type: ErrorTypeInvalidRequest, Message: "nominatim: building request", Err: err}
	}

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(err, ProviderNominatim)
	}

	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ClassifyHTTPError(resp.StatusCode, ProviderNominatim)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &GeocodingError{Type: ErrorTypeUnknown, Message: "nominatim: decoding response", Err: err}
	}

	return nil
}
