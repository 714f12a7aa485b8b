// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

// Package quote turns user input into a live price: it debounces address
// edits, resolves them through a geocoder, prices the trip from the office and
// recomputes the estimate whenever anything changes.
package quote

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/kirkas-siivous/kirkas/geocoding"
	"github.com/kirkas-siivous/kirkas/spatial"
)

// Resolver defaults.
const (
	DefaultResolveDebounce  = 1000 * time.Millisecond
	DefaultResolveMinLength = 5
	DefaultLookupTimeout    = 10 * time.Second
)

// ResolverOptions configures a Resolver. Zero values select the defaults.
type ResolverOptions struct {
	Geocoder  geocoding.Geocoder
	Policy    spatial.FeePolicy
	Countries *CountryGate
	Debounce  time.Duration
	MinLength int
	Timeout   time.Duration
	Logger    *slog.Logger
}

// Resolver validates the current address text: after a quiet period it looks
// the address up, checks its country and prices the trip.
//
// Every lookup carries a sequence number taken when it is issued. A response
// is applied only if no later keystroke or lookup happened in the meantime, so
// a slow answer for old text never overwrites a newer one. In-flight requests
// are not cancelled for this; they are simply ignored.
type Resolver struct {
	geocoder  geocoding.Geocoder
	policy    spatial.FeePolicy
	countries *CountryGate
	minLength int
	timeout   time.Duration
	logger    *slog.Logger
	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	status    Status
	latest    uint64
	listeners []func(Status)
	closed    bool

	// statuses waiting for delivery, in the order they were set
	pending    []Status
	delivering bool
}

// NewResolver creates an idle Resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	if opts.Policy == (spatial.FeePolicy{}) {
		opts.Policy = spatial.DefaultFeePolicy()
	}

	if opts.Countries == nil {
		opts.Countries = DefaultCountryGate
	}

	if opts.Debounce <= 0 {
		opts.Debounce = DefaultResolveDebounce
	}

	if opts.MinLength <= 0 {
		opts.MinLength = DefaultResolveMinLength
	}

	if opts.Timeout <= 0 {
		opts.Timeout = DefaultLookupTimeout
	}

	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Resolver{
		geocoder:  opts.Geocoder,
		policy:    opts.Policy,
		countries: opts.Countries,
		minLength: opts.MinLength,
		timeout:   opts.Timeout,
		logger:    opts.Logger.With("component", "resolver"),
		debouncer: NewDebouncer(opts.Debounce),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Status returns the current status.
func (r *Resolver) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.status
}

// OnChange registers fn to be called after every status change. Calls are
// serialized and arrive in the order the statuses were set. fn may call back
// into the Resolver; the resulting changes are delivered after fn returns.
func (r *Resolver) OnChange(fn func(Status)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.listeners = append(r.listeners, fn)
}

// Update records an edit of the address text. The lookup runs once no other
// edit arrived for the debounce period. Any lookup still in flight is
// superseded right away.
func (r *Resolver) Update(address string) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return
	}

	r.latest++
	r.status = Status{
		State:     Debouncing,
		Fee:       r.status.Fee,
		Locating:  r.status.Locating,
		LocateErr: r.status.LocateErr,
	}
	r.mu.Unlock()
	r.notify()

	r.debouncer.Schedule(func() { r.fire(address) })
}

// Flush runs a pending debounced lookup now, on the caller's goroutine.
func (r *Resolver) Flush() bool {
	return r.debouncer.Flush()
}

// Resolve looks address up immediately, bypassing the debounce, and applies
// the result like a debounced lookup would. The returned status is the one
// computed for address even when a later edit superseded it.
func (r *Resolver) Resolve(ctx context.Context, address string) Status {
	r.debouncer.Stop()

	seq, ok := r.begin(address)
	if !ok {
		return r.Status()
	}

	st := r.Lookup(ctx, address)
	st.Sequence = seq
	r.apply(seq, st)

	return st
}

// Lookup resolves address without touching the resolver state.
func (r *Resolver) Lookup(ctx context.Context, address string) Status {
	address = strings.TrimSpace(address)
	if utf8.RuneCountInString(address) < r.minLength {
		return Status{State: Idle, Err: ValidationTooShort}
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	places, err := r.geocoder.Search(ctx, geocoding.SearchRequest{
		Query:          address,
		AddressDetails: true,
		Limit:          1,
	})
	if err != nil {
		if geocoding.IsNotFoundError(err) {
			return Status{State: Failed, Err: NoResults}
		}

		logProviderFailure(ctx, r.logger, "address lookup failed", err)

		return Status{State: Failed, Err: NetworkError}
	}

	if len(places) == 0 {
		return Status{State: Failed, Err: NoResults}
	}

	return r.price(places[0])
}

// Locate resolves the device position obtained from loc.
//
// When the position reverse-geocodes to a local address, its display name is
// fed through Update like typed text. A non-local address fails with
// UnsupportedCountry right away and supersedes any pending text lookup. In
// both cases the display name is returned so the caller can show it. Locator
// and reverse lookup failures are recorded separately from the text pipeline
// and leave it untouched.
func (r *Resolver) Locate(ctx context.Context, loc Locator) (string, error) {
	r.setLocating(true, NoError, false)

	place, kind, err := r.locate(ctx, loc)
	if err != nil {
		r.setLocating(false, kind, true)

		return "", err
	}

	if !r.countries.Allows(place.Country, place.CountryCode) {
		r.debouncer.Stop()

		r.mu.Lock()
		r.latest++
		r.status = Status{State: Failed, Sequence: r.latest, Err: UnsupportedCountry}
		r.mu.Unlock()
		r.notify()

		return place.DisplayName, ErrUnsupportedCountry
	}

	r.setLocating(false, NoError, true)
	r.Update(place.DisplayName)

	return place.DisplayName, nil
}

// LookupPoint resolves the position obtained from loc without touching the
// resolver state. The reverse-geocoded place is priced directly; locator
// failures are reported in LocateErr.
func (r *Resolver) LookupPoint(ctx context.Context, loc Locator) Status {
	place, kind, err := r.locate(ctx, loc)
	if err != nil {
		return Status{State: Idle, LocateErr: kind}
	}

	return r.price(*place)
}

func (r *Resolver) locate(ctx context.Context, loc Locator) (*geocoding.Place, ErrorKind, error) {
	p, err := loc.Locate(ctx)
	if err != nil {
		return nil, locateErrorKind(err), err
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	place, err := r.geocoder.Reverse(ctx, geocoding.ReverseRequest{Point: p, AddressDetails: true})
	if err != nil {
		logProviderFailure(ctx, r.logger, "reverse lookup of device position failed", err, "point", p.String())

		return nil, GeolocationUnavailable, fmt.Errorf("%w: %w", ErrGeolocationUnavailable, err)
	}

	return place, NoError, nil
}

// Close stops pending work. Later responses and edits are ignored.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.debouncer.Stop()
	r.cancel()
}

func (r *Resolver) price(p geocoding.Place) Status {
	if !r.countries.Allows(p.Country, p.CountryCode) {
		return Status{State: Failed, Err: UnsupportedCountry}
	}

	distanceKm, fee := r.policy.Quote(p.Point)

	result := &GeocodeResult{
		DisplayName: p.DisplayName,
		Lat:         p.Point.Lat,
		Lon:         p.Point.Lng,
		CountryName: p.Country,
	}

	return Status{State: Resolved, Result: result, DistanceKm: distanceKm, Fee: fee}
}

func (r *Resolver) fire(address string) {
	seq, ok := r.begin(address)
	if !ok {
		return
	}

	st := r.Lookup(r.ctx, address)
	r.apply(seq, st)
}

// begin issues a new sequence number and moves to Resolving, or to Idle when
// address is too short. It reports whether a lookup should follow.
func (r *Resolver) begin(address string) (uint64, bool) {
	short := utf8.RuneCountInString(strings.TrimSpace(address)) < r.minLength

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()

		return 0, false
	}

	r.latest++
	seq := r.latest

	next := Status{
		State:     Resolving,
		Sequence:  seq,
		Fee:       r.status.Fee,
		Locating:  r.status.Locating,
		LocateErr: r.status.LocateErr,
	}
	if short {
		next = Status{
			State:     Idle,
			Err:       ValidationTooShort,
			Locating:  r.status.Locating,
			LocateErr: r.status.LocateErr,
		}
	}

	r.status = next
	r.mu.Unlock()
	r.notify()

	return seq, !short
}

func (r *Resolver) apply(seq uint64, st Status) {
	r.mu.Lock()
	if r.closed || seq != r.latest {
		latest := r.latest
		r.mu.Unlock()
		r.logger.Debug("discarding stale lookup", "sequence", seq, "latest", latest)

		return
	}

	st.Sequence = seq
	st.Locating = r.status.Locating

	if st.State != Resolved {
		st.LocateErr = r.status.LocateErr
	}

	r.status = st
	r.mu.Unlock()
	r.notify()
}

func (r *Resolver) setLocating(locating bool, kind ErrorKind, setKind bool) {
	r.mu.Lock()
	r.status.Locating = locating

	if setKind {
		r.status.LocateErr = kind
	}
	r.mu.Unlock()
	r.notify()
}

// notify queues the current status. The goroutine that finds no delivery in
// progress drains the queue; listeners run without any lock held.
func (r *Resolver) notify() {
	r.mu.Lock()
	r.pending = append(r.pending, r.status)

	if r.delivering {
		r.mu.Unlock()

		return
	}

	r.delivering = true

	for len(r.pending) > 0 {
		st := r.pending[0]
		r.pending = r.pending[1:]
		listeners := slices.Clone(r.listeners)
		r.mu.Unlock()

		for _, fn := range listeners {
			fn(st)
		}

		r.mu.Lock()
	}

	r.delivering = false
	r.mu.Unlock()
}
