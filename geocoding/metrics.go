// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package geocoding

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	opSearch  = "search"
	opReverse = "reverse"

	outcomeOK    = "ok"
	outcomeEmpty = "empty"
)

var (
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheTotal      *prometheus.CounterVec
)

func init() {
	requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kirkas",
		Subsystem: "geocoder",
		Name:      "requests_total",
		Help:      "Number of geocoding provider requests",
	},
		[]string{"provider", "op", "outcome"},
	)
	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "kirkas",
		Subsystem: "geocoder",
		Name:      "request_duration_seconds",
		Help:      "Time spent waiting on the geocoding provider",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	},
		[]string{"provider", "op"},
	)
	cacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kirkas",
		Subsystem: "geocoder",
		Name:      "cache_total",
		Help:      "Geocoding cache lookups by result",
	},
		[]string{"op", "result"},
	)

	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(requestDuration)
	prometheus.MustRegister(cacheTotal)
}

// InstrumentedGeocoder records request counts and latencies of another Geocoder.
type InstrumentedGeocoder struct {
	next     Geocoder
	provider string
}

// NewInstrumentedGeocoder wraps next, labelling its metrics with provider.
func NewInstrumentedGeocoder(next Geocoder, provider string) *InstrumentedGeocoder {
	return &InstrumentedGeocoder{next: next, provider: provider}
}

// Search implements Geocoder.
func (g *InstrumentedGeocoder) Search(ctx context.Context, req SearchRequest) ([]Place, error) {
	start := time.Now()
	places, err := g.next.Search(ctx, req)
	g.observe(opSearch, start, err, len(places) == 0)

	return places, err
}

// Reverse implements Geocoder.
func (g *InstrumentedGeocoder) Reverse(ctx context.Context, req ReverseRequest) (*Place, error) {
	start := time.Now()
	place, err := g.next.Reverse(ctx, req)
	g.observe(opReverse, start, err, place == nil)

	return place, err
}

func (g *InstrumentedGeocoder) observe(op string, start time.Time, err error, empty bool) {
	requestDuration.WithLabelValues(g.provider, op).Observe(time.Since(start).Seconds())

	outcome := outcomeOK

	switch {
	case err != nil:
		outcome = TypeOf(err).String()
	case empty:
		outcome = outcomeEmpty
	}

	requestsTotal.WithLabelValues(g.provider, op, outcome).Inc()
}
