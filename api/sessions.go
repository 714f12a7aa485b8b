// Copyright 2025 The Kirkas Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirkas-siivous/kirkas/pricing"
	"github.com/kirkas-siivous/kirkas/quote"
)

// DefaultSessionTTL is how long an untouched session lives.
const DefaultSessionTTL = 30 * time.Minute

var activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
	Namespace: "kirkas",
	Subsystem: "api",
	Name:      "sessions_active",
	Help:      "Number of live quote sessions",
})

func init() {
	prometheus.MustRegister(activeSessions)
}

type sessionEntry struct {
	session  *quote.Session
	lastSeen time.Time
	// open event streams; a held session never expires
	streams int
}

// SessionStore keeps live sessions by ID and drops the idle ones.
type SessionStore struct {
	template quote.SessionOptions
	ttl      time.Duration
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewSessionStore creates an empty store. Sessions are built from template.
func NewSessionStore(template quote.SessionOptions, ttl time.Duration) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionStore{
		template: template,
		ttl:      ttl,
		now:      time.Now,
		sessions: make(map[string]*sessionEntry),
	}
}

// Create starts a session from input (defaults when nil) and returns its ID.
func (st *SessionStore) Create(input *pricing.QuoteInput) (string, *quote.Session) {
	opts := st.template
	opts.Input = input

	id := uuid.NewString()
	session := quote.NewSession(opts)

	st.mu.Lock()
	st.sessions[id] = &sessionEntry{session: session, lastSeen: st.now()}
	st.mu.Unlock()

	activeSessions.Inc()

	return id, session
}

// Get returns the session and marks it as used.
func (st *SessionStore) Get(id string) (*quote.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, false
	}

	e.lastSeen = st.now()

	return e.session, true
}

// Hold returns the session and keeps it alive until release is called. It is
// meant for long-lived requests such as event streams, which would otherwise
// only refresh the session once. Releasing marks the session as used.
func (st *SessionStore) Hold(id string) (session *quote.Session, release func(), ok bool) {
	st.mu.Lock()
	defer st.mu.Unlock()

	e, ok := st.sessions[id]
	if !ok {
		return nil, nil, false
	}

	e.streams++
	e.lastSeen = st.now()

	var once sync.Once

	release = func() {
		once.Do(func() {
			st.mu.Lock()
			defer st.mu.Unlock()

			e.streams--
			e.lastSeen = st.now()
		})
	}

	return e.session, release, true
}

// Delete closes and forgets a session.
func (st *SessionStore) Delete(id string) bool {
	st.mu.Lock()
	e, ok := st.sessions[id]
	delete(st.sessions, id)
	st.mu.Unlock()

	if ok {
		e.session.Close()
		activeSessions.Dec()
	}

	return ok
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// Sweep closes sessions idle for longer than the TTL and returns how many.
// Held sessions are skipped.
func (st *SessionStore) Sweep() int {
	cutoff := st.now().Add(-st.ttl)

	st.mu.Lock()

	var expired []*quote.Session

	for id, e := range st.sessions {
		if e.streams == 0 && e.lastSeen.Before(cutoff) {
			expired = append(expired, e.session)
			delete(st.sessions, id)
		}
	}
	st.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}

	activeSessions.Sub(float64(len(expired)))

	return len(expired)
}

// Janitor sweeps periodically until ctx is done.
func (st *SessionStore) Janitor(ctx context.Context) {
	ticker := time.NewTicker(st.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st.Sweep()
		}
	}
}

// Close closes every session.
func (st *SessionStore) Close() {
	st.mu.Lock()
	sessions := st.sessions
	st.sessions = make(map[string]*sessionEntry)
	st.mu.Unlock()

	for _, e := range sessions {
		e.session.Close()
	}

	activeSessions.Sub(float64(len(sessions)))
}
