// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package quote

import (
	"context"
	"iter"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kirkas-siivous/kirkas/geocoding"
)

// Suggester defaults.
const (
	DefaultSuggestDebounce  = 300 * time.Millisecond
	DefaultSuggestMinLength = 3
	DefaultSuggestLimit     = 5
)

// SuggesterOptions configures a Suggester. Zero values select the defaults.
type SuggesterOptions struct {
	Geocoder  geocoding.Geocoder
	Debounce  time.Duration
	MinLength int
	Limit     int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Suggester keeps a short list of address candidates for the text being typed.
// It never affects prices: a candidate only matters once it is submitted as
// the address.
type Suggester struct {
	geocoder  geocoding.Geocoder
	minLength int
	limit     int
	timeout   time.Duration
	logger    *slog.Logger
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	items     []string
	latest    uint64
	listeners []func([]string)
	closed    bool

	pending    [][]string
	delivering bool
}

// NewSuggester creates a Suggester with an empty list.
func NewSuggester(opts SuggesterOptions) *Suggester {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultSuggestDebounce
	}

	if opts.MinLength <= 0 {
		opts.MinLength = DefaultSuggestMinLength
	}

	if opts.Limit <= 0 {
		opts.Limit = DefaultSuggestLimit
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLookupTimeout
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Suggester{
		geocoder:  opts.Geocoder,
		minLength: opts.MinLength,
		limit:     opts.Limit,
		timeout:   opts.Timeout,
		logger:    opts.Logger.With("component", "suggester"),
		debouncer: NewDebouncer(opts.Debounce),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// OnChange registers fn to be called with the new list after every change.
// Calls are serialized and in order; fn may call back into the Suggester.
func (s *Suggester) OnChange(fn func([]string)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, fn)
}

// Update records an edit of the partial address. Input shorter than the
// minimum clears the list at once; anything else is looked up after the
// debounce period.
func (s *Suggester) Update(partial string) {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.minLength {
		s.Clear()

		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}

	s.latest++
	s.mu.Unlock()

	s.debouncer.Schedule(func() { s.fire(partial) })
}

// Clear drops the list and any pending or in-flight lookup.
func (s *Suggester) Clear() {
	s.debouncer.Stop()

	s.mu.Lock()
	s.latest++
	changed := len(s.items) > 0
	s.items = nil
	s.mu.Unlock()

	if changed {
		s.notify()
	}
}

// Flush runs a pending debounced lookup now, on the caller's goroutine.
func (s *Suggester) Flush() bool {
	return s.debouncer.Flush()
}

// Items returns a copy of the current list.
func (s *Suggester) Items() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return slices.Clone(s.items)
}

// Suggestions yields the current candidates.
func (s *Suggester) Suggestions() iter.Seq[string] {
	return slices.Values(s.Items())
}

// Suggest looks partial up immediately without touching the list.
// Input shorter than the minimum yields nothing.
func (s *Suggester) Suggest(ctx context.Context, partial string) (iter.Seq[string], error) {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.minLength {
		return slices.Values([]string(nil)), nil
	}

	names, err := s.search(ctx, partial)
	if err != nil {
		return nil, err
	}

	return slices.Values(names), nil
}

// Close stops pending work.
func (s *Suggester) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	s.debouncer.Stop()
	s.cancel()
}

func (s *Suggester) search(ctx context.Context, partial string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	places, err := s.geocoder.Search(ctx, geocoding.SearchRequest{
		Query:          partial,
		AddressDetails: true,
		Limit:          s.limit,
	})
	if err != nil {
		if geocoding.IsNotFoundError(err) {
			return nil, nil
		}

		return nil, err
	}

	names := make([]string, 0, len(places))
	for _, p := range places {
		names = append(names, p.DisplayName)
	}

	return names, nil
}

func (s *Suggester) fire(partial string) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return
	}

	s.latest++
	seq := s.latest
	s.mu.Unlock()

	names, err := s.search(s.ctx, partial)

	s.mu.Lock()
	if s.closed || seq != s.latest {
		s.mu.Unlock()

		return
	}

	if err != nil {
		s.mu.Unlock()
		logProviderFailure(s.ctx, s.logger, "suggestion lookup failed", err)

		return
	}

	s.items = names
	s.mu.Unlock()
	s.notify()
}

func (s *Suggester) notify() {
	s.mu.Lock()
	s.pending = append(s.pending, slices.Clone(s.items))

	if s.delivering {
		s.mu.Unlock()

		return
	}

	s.delivering = true

	for len(s.pending) > 0 {
		items := s.pending[0]
		s.pending = s.pending[1:]
		listeners := slices.Clone(s.listeners)
		s.mu.Unlock()

		for _, fn := range listeners {
			fn(slices.Clone(items))
		}

		s.mu.Lock()
	}

	s.delivering = false
	s.mu.Unlock()
}
