// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMostSevere(t *testing.T) {
	tests := []struct {
		name  string
		kinds []ErrorKind
		want  ErrorKind
	}{
		{"none", nil, NoError},
		{"lookup only", []ErrorKind{NetworkError}, NetworkError},
		{"geolocation beats lookup", []ErrorKind{NoResults, GeolocationDenied}, GeolocationDenied},
		{"country beats geolocation", []ErrorKind{GeolocationUnavailable, UnsupportedCountry}, UnsupportedCountry},
		{"tie keeps first", []ErrorKind{NoResults, NetworkError}, NoResults},
		{"too short is silent", []ErrorKind{ValidationTooShort}, NoError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MostSevere(tt.kinds...))
		})
	}
}

func TestStatusProblem(t *testing.T) {
	assert.Equal(t, NoError, Status{State: Idle, Err: ValidationTooShort}.Problem())
	assert.Equal(t, NoResults, Status{State: Failed, Err: NoResults}.Problem())
	assert.Equal(t, GeolocationDenied, Status{State: Failed, Err: NetworkError, LocateErr: GeolocationDenied}.Problem())
	assert.Equal(t, UnsupportedCountry, Status{State: Failed, Err: UnsupportedCountry, LocateErr: GeolocationDenied}.Problem())
}

func TestStatusJSON(t *testing.T) {
	raw, err := json.Marshal(Status{State: Failed, Err: UnsupportedCountry})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":"failed","fee":0,"error":"unsupported_country"}`, string(raw))

	var back Status
	require.NoError(t, json.Unmarshal([]byte(`{"state":"resolved","fee":2.5,"locate_error":"geolocation_denied"}`), &back))
	assert.Equal(t, Status{State: Resolved, Fee: 2.5, LocateErr: GeolocationDenied}, back)

	require.Error(t, json.Unmarshal([]byte(`{"state":"floating"}`), &back))
	require.Error(t, json.Unmarshal([]byte(`{"error":"meteor"}`), &back))
}

func TestCountryGate(t *testing.T) {
	tests := []struct {
		country string
		code    string
		want    bool
	}{
		{"Finland", "", true},
		{"finland", "", true},
		{"Suomi / Finland", "", true},
		{"SUOMI", "", true},
		{"Deutschland", "", false},
		{"Deutschland", "de", false},
		{"", "FI", true},
		{"", "", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DefaultCountryGate.Allows(tt.country, tt.code), "%q/%q", tt.country, tt.code)
	}

	gate := NewCountryGate([]string{"Sverige", "Åland"}, nil)
	assert.True(t, gate.Allows("aland", ""))
	assert.False(t, gate.Allows("Finland", "fi"))
}
