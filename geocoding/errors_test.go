// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

type errorCheckTestCase struct {
	name string
	err  error
	want bool
}

func runErrorCheckTest(t *testing.T, tests []errorCheckTestCase, checkFunc func(error) bool) {
	t.Helper()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := checkFunc(tt.err); got != tt.want {
				t.Errorf("checkFunc() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsRateLimitError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "rate limit error type",
			err:  &GeocodingError{Type: ErrorTypeRateLimit, Message: "rate limit exceeded"},
			want: true,
		},
		{
			name: "error message contains too many requests",
			err:  errors.New("too many requests"),
			want: true,
		},
		{
			name: "error message contains 429",
			err:  errors.New("nominatim returned status 429"),
			want: true,
		},
		{
			name: "other error type",
			err:  &GeocodingError{Type: ErrorTypeNotFound, Message: "not found"},
			want: false,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}, IsRateLimitError)
}

func TestIsQuotaExceededError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "quota exceeded error type",
			err:  &GeocodingError{Type: ErrorTypeQuotaExceeded, Message: "quota exceeded"},
			want: true,
		},
		{
			name: "error message contains over_query_limit",
			err:  errors.New("google maps status: OVER_QUERY_LIMIT"),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("some other error"),
			want: false,
		},
	}, IsQuotaExceededError)
}

func TestIsTimeoutError(t *testing.T) {
	runErrorCheckTest(t, []errorCheckTestCase{
		{
			name: "timeout error type",
			err:  &GeocodingError{Type: ErrorTypeTimeout, Message: "timeout"},
			want: true,
		},
		{
			name: "deadline exceeded",
			err:  fmt.Errorf("calling provider: %w", context.DeadlineExceeded),
			want: true,
		},
		{
			name: "unrelated error",
			err:  errors.New("connection refused"),
			want: false,
		},
	}, IsTimeoutError)
}

func TestIsNotFoundErrorWrapped(t *testing.T) {
	err := fmt.Errorf("resolving: %w", &GeocodingError{Type: ErrorTypeNotFound, Message: "nothing"})

	if !IsNotFoundError(err) {
		t.Errorf("IsNotFoundError() = false for wrapped not found error")
	}

	if IsNotFoundError(errors.New("nothing")) {
		t.Errorf("IsNotFoundError() = true for plain error")
	}
}

func TestClassifyHTTPError(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{http.StatusTooManyRequests, ErrorTypeRateLimit},
		{http.StatusForbidden, ErrorTypeQuotaExceeded},
		{http.StatusBadRequest, ErrorTypeInvalidRequest},
		{http.StatusNotFound, ErrorTypeNotFound},
		{http.StatusServiceUnavailable, ErrorTypeNetworkError},
		{http.StatusGatewayTimeout, ErrorTypeNetworkError},
		{http.StatusTeapot, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPError(tt.status, ProviderNominatim); got.Type != tt.want {
			t.Errorf("ClassifyHTTPError(%d) = %v, want %v", tt.status, got.Type, tt.want)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := classifyTransportError(context.DeadlineExceeded, ProviderNominatim); got.Type != ErrorTypeTimeout {
		t.Errorf("deadline exceeded classified as %v", got.Type)
	}

	if got := classifyTransportError(errors.New("dial tcp: connection refused"), ProviderNominatim); got.Type != ErrorTypeNetworkError {
		t.Errorf("connection refused classified as %v", got.Type)
	}
}

func TestErrorTypeString(t *testing.T) {
	if got := ErrorTypeNotFound.String(); got != "not_found" {
		t.Errorf("ErrorTypeNotFound.String() = %q", got)
	}

	if got := ErrorType(99).String(); got != "ErrorType(99)" {
		t.Errorf("ErrorType(99).String() = %q", got)
	}
}
