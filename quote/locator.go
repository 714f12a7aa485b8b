// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"errors"

	"github.com/kirkas-siivous/kirkas/spatial"
)

var (
	// ErrGeolocationDenied is returned by a Locator when the user refused.
	ErrGeolocationDenied = errors.New("geolocation denied")
	// ErrGeolocationUnavailable is returned by a Locator when no fix could be obtained.
	ErrGeolocationUnavailable = errors.New("geolocation unavailable")
)

// Locator obtains the device position once.
type Locator interface {
	Locate(ctx context.Context) (spatial.Point, error)
}

// LocatorFunc adapts a function to Locator.
type LocatorFunc func(ctx context.Context) (spatial.Point, error)

// Locate implements Locator.
func (f LocatorFunc) Locate(ctx context.Context) (spatial.Point, error) {
	return f(ctx)
}

// StaticLocator replays a position reported by a client.
type StaticLocator struct {
	Point  *spatial.Point
	Denied bool
}

// Locate implements Locator.
func (l StaticLocator) Locate(_ context.Context) (spatial.Point, error) {
	switch {
	case l.Denied:
		return spatial.Point{}, ErrGeolocationDenied
	case l.Point == nil:
		return spatial.Point{}, ErrGeolocationUnavailable
	}

	if err := l.Point.Validate(); err != nil {
		return spatial.Point{}, errors.Join(ErrGeolocationUnavailable, err)
	}

	return *l.Point, nil
}

func locateErrorKind(err error) ErrorKind {
	if errors.Is(err, ErrGeolocationDenied) {
		return GeolocationDenied
	}

	return GeolocationUnavailable
}
