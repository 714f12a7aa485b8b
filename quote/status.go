// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"fmt"
	"slices"
)

// ErrorKind classifies why an address could not be priced. All kinds are
// transient and clear on the next successful resolution.
type ErrorKind int

const (
	// NoError means nothing is wrong.
	NoError ErrorKind = iota
	// ValidationTooShort the input is not addressable yet; never shown to users.
	ValidationTooShort
	// NetworkError the provider could not be reached or failed.
	NetworkError
	// NoResults the provider found nothing.
	NoResults
	// UnsupportedCountry the address is outside the service area.
	UnsupportedCountry
	// GeolocationDenied the user refused to share their location.
	GeolocationDenied
	// GeolocationUnavailable the device location could not be obtained or resolved.
	GeolocationUnavailable
)

var errorKindNames = map[ErrorKind]string{
	NoError:                "",
	ValidationTooShort:     "validation_too_short",
	NetworkError:           "network_error",
	NoResults:              "no_results",
	UnsupportedCountry:     "unsupported_country",
	GeolocationDenied:      "geolocation_denied",
	GeolocationUnavailable: "geolocation_unavailable",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// MarshalText implements encoding.TextMarshaler.
func (k ErrorKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ErrorKind) UnmarshalText(text []byte) error {
	for kind, name := range errorKindNames {
		if name == string(text) {
			*k = kind

			return nil
		}
	}

	return fmt.Errorf("unknown error kind %q", text)
}

// UserVisible reports whether the kind is ever shown to a user.
func (k ErrorKind) UserVisible() bool {
	return k != NoError && k != ValidationTooShort
}

func (k ErrorKind) severity() int {
	switch k {
	case UnsupportedCountry:
		return 3
	case GeolocationDenied, GeolocationUnavailable:
		return 2
	case NoResults, NetworkError:
		return 1
	default:
		return 0
	}
}

// MostSevere picks the single kind to show when several apply:
// UnsupportedCountry, then geolocation problems, then lookup problems.
// On a tie the first argument wins.
func MostSevere(kinds ...ErrorKind) ErrorKind {
	best := NoError

	for _, k := range kinds {
		if k.severity() > best.severity() {
			best = k
		}
	}

	return best
}

// State is the tag of a resolution status.
type State int

// Resolution states.
const (
	Idle State = iota
	Debouncing
	Resolving
	Resolved
	Failed
)

var stateNames = [...]string{"idle", "debouncing", "resolving", "resolved", "failed"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	i := slices.Index(stateNames[:], string(text))
	if i < 0 {
		return fmt.Errorf("unknown state %q", text)
	}

	*s = State(i)

	return nil
}

// GeocodeResult is a resolved address. It is never modified once produced.
type GeocodeResult struct {
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	CountryName string  `json:"country_name"`
}

// Status is the resolver state visible to the estimator.
//
// Result and DistanceKm are only set while Resolved, Sequence while Resolving
// or after a sequenced lookup landed. Err is set while Failed, and Idle carries
// ValidationTooShort when the input was too short to look up. Fee is the fee
// of the last applied resolution: it survives Debouncing and Resolving so the
// price does not flicker while typing, and drops to zero on Idle and Failed.
type Status struct {
	State      State          `json:"state"`
	Sequence   uint64         `json:"sequence,omitempty"`
	Result     *GeocodeResult `json:"result,omitempty"`
	DistanceKm float64        `json:"distance_km,omitempty"`
	Fee        float64        `json:"fee"`
	Err        ErrorKind      `json:"error,omitempty"`

	// set by the device-location path, independent of the text pipeline
	Locating  bool      `json:"locating,omitempty"`
	LocateErr ErrorKind `json:"locate_error,omitempty"`
}

// Problem returns the single error to show to the user, if any.
func (s Status) Problem() ErrorKind {
	kind := MostSevere(s.Err, s.LocateErr)
	if !kind.UserVisible() {
		return NoError
	}

	return kind
}
