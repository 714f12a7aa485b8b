// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/pricing"
	"github.com/kirkas-siivous/kirkas/spatial"
)

// SessionOptions configures a Session.
type SessionOptions struct {
	Geocoder        geocoding.Geocoder
	Policy          spatial.FeePolicy
	Countries       *CountryGate
	ResolveDebounce time.Duration
	SuggestDebounce time.Duration
	Timeout         time.Duration
	Logger          *slog.Logger

	// Input is the starting input; DefaultQuoteInput when nil.
	Input *pricing.QuoteInput
}

// Snapshot is everything a presentation layer needs to render a quote.
type Snapshot struct {
	Input           pricing.QuoteInput      `json:"input"`
	ServiceReceiver pricing.ServiceReceiver `json:"service_receiver"`
	Estimate        pricing.PriceEstimate   `json:"estimate"`
	Status          Status                  `json:"status"`
	Error           ErrorKind               `json:"error,omitempty"`
	Suggestions     []string                `json:"suggestions"`
}

// Session is one customer's calculator. Input changes only through the
// setters; every change, and every resolver or suggestion update, produces a
// freshly computed Snapshot.
type Session struct {
	resolver  *Resolver
	suggester *Suggester
	logger    *slog.Logger

	mu        sync.Mutex
	input     pricing.QuoteInput
	listeners []sessionListener
	nextID    uint64

	// dirty is set by every change; the delivering goroutine keeps sending
	// fresh snapshots until it stays clear
	dirty      bool
	delivering bool
}

// NewSession creates a session with its own resolver and suggester.
func NewSession(opts SessionOptions) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	input := pricing.DefaultQuoteInput()
	if opts.Input != nil {
		input = *opts.Input
		input.AreaSqm = pricing.ClampArea(input.AreaSqm)
	}

	s := &Session{
		resolver: NewResolver(ResolverOptions{
			Geocoder:  opts.Geocoder,
			Policy:    opts.Policy,
			Countries: opts.Countries,
			Debounce:  opts.ResolveDebounce,
			Timeout:   opts.Timeout,
			Logger:    opts.Logger,
		}),
		suggester: NewSuggester(SuggesterOptions{
			Geocoder: opts.Geocoder,
			Debounce: opts.SuggestDebounce,
			Timeout:  opts.Timeout,
			Logger:   opts.Logger,
		}),
		logger: opts.Logger,
		input:  input,
	}

	s.resolver.OnChange(func(Status) { s.notify() })
	s.suggester.OnChange(func([]string) { s.notify() })

	if input.Address != "" {
		s.resolver.Update(input.Address)
	}

	return s
}

// Snapshot computes the current quote.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	input := s.input
	s.mu.Unlock()

	st := s.resolver.Status()

	return Snapshot{
		Input:           input,
		ServiceReceiver: input.ServiceReceiver(),
		Estimate:        pricing.Estimate(input, st.Fee),
		Status:          st,
		Error:           st.Problem(),
		Suggestions:     s.suggester.Items(),
	}
}

type sessionListener struct {
	id uint64
	fn func(Snapshot)
}

// OnChange registers fn to receive every new snapshot. The returned function
// unregisters it.
//
// Calls are serialized and no lock is held while fn runs, so fn may call the
// setters; the snapshot for such a change is delivered after fn returns.
// Changes that happen while a delivery is running may be coalesced into a
// single, fresher snapshot.
func (s *Session) OnChange(fn func(Snapshot)) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, sessionListener{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		s.listeners = slices.DeleteFunc(s.listeners, func(l sessionListener) bool { return l.id == id })
	}
}

// SetPropertyType changes the property type; the service receiver follows.
func (s *Session) SetPropertyType(p pricing.PropertyType) {
	s.update(func(in *pricing.QuoteInput) { in.PropertyType = p })
}

// SetArea changes the floor area, clamped to the calculator's domain.
func (s *Session) SetArea(areaSqm float64) {
	s.update(func(in *pricing.QuoteInput) { in.AreaSqm = pricing.ClampArea(areaSqm) })
}

// SetServiceLevel changes the tier.
func (s *Session) SetServiceLevel(l pricing.ServiceLevel) {
	s.update(func(in *pricing.QuoteInput) { in.ServiceLevel = l })
}

// SetFrequency changes the visit frequency.
func (s *Session) SetFrequency(f pricing.Frequency) {
	s.update(func(in *pricing.QuoteInput) { in.Frequency = f })
}

// SetAddress records typed address text. It feeds both the suggestion list
// and the resolver.
func (s *Session) SetAddress(text string) {
	s.mu.Lock()
	s.input.Address = text
	s.mu.Unlock()

	s.suggester.Update(text)
	s.resolver.Update(text)
	s.notify()
}

// SelectSuggestion submits the i-th suggestion as the address. The list is
// cleared and the text goes through the resolver as a new edit.
func (s *Session) SelectSuggestion(i int) error {
	items := s.suggester.Items()
	if i < 0 || i >= len(items) {
		return fmt.Errorf("suggestion %d out of range [0, %d)", i, len(items))
	}

	text := items[i]

	s.suggester.Clear()

	s.mu.Lock()
	s.input.Address = text
	s.mu.Unlock()

	s.resolver.Update(text)
	s.notify()

	return nil
}

// Locate fills the address from the device position. The returned error is
// one of ErrGeolocationDenied, ErrGeolocationUnavailable or
// ErrUnsupportedCountry (possibly wrapped); the session stays usable in
// every case.
func (s *Session) Locate(ctx context.Context, loc Locator) error {
	address, err := s.resolver.Locate(ctx, loc)
	if address != "" {
		s.suggester.Clear()

		s.mu.Lock()
		s.input.Address = address
		s.mu.Unlock()
		s.notify()
	}

	return err
}

// Flush runs pending debounced lookups now.
func (s *Session) Flush() {
	s.suggester.Flush()
	s.resolver.Flush()
}

// Close stops the session's background work.
func (s *Session) Close() {
	s.suggester.Close()
	s.resolver.Close()
}

func (s *Session) update(fn func(in *pricing.QuoteInput)) {
	s.mu.Lock()
	fn(&s.input)
	s.mu.Unlock()

	s.notify()
}

func (s *Session) notify() {
	s.mu.Lock()
	s.dirty = true

	if s.delivering {
		s.mu.Unlock()

		return
	}

	s.delivering = true

	for s.dirty {
		s.dirty = false
		listeners := slices.Clone(s.listeners)
		s.mu.Unlock()

		if len(listeners) > 0 {
			snap := s.Snapshot()
			for _, l := range listeners {
				l.fn(snap)
			}
		}

		s.mu.Lock()
	}

	s.delivering = false
	s.mu.Unlock()
}
