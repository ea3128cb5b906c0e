// Package ratelimit implements a per-actor, per-action sliding-window
// throttle. State is process-local and lost on restart; that matches the
// advisory posture of the limits, which exist to slow abusive clients,
// not to be a security boundary.
package ratelimit

import (
	"sync"
	"time"
)

// DefaultWindow is the rolling interval limits are evaluated against.
const DefaultWindow = time.Minute

// GuestActor keys unauthenticated callers so their throttling does not
// leak onto signed-in users.
const GuestActor = "guest"

// Limiter tracks allowed invocation timestamps per (actor, action) key.
type Limiter struct {
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	actions map[string][]time.Time
}

// Option customises a Limiter.
type Option func(*Limiter)

// WithWindow overrides the rolling window size.
func WithWindow(window time.Duration) Option {
	return func(l *Limiter) {
		if window > 0 {
			l.window = window
		}
	}
}

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		if now != nil {
			l.now = now
		}
	}
}

// New constructs a Limiter with a one-minute window by default.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		window:  DefaultWindow,
		now:     time.Now,
		actions: make(map[string][]time.Time),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Allow reports whether actor may perform action given maxPerWindow.
// Timestamps older than the window are dropped first; a denied call is
// not recorded, so denials never extend the throttle.
func (l *Limiter) Allow(actor, action string, maxPerWindow int) bool {
	if actor == "" {
		actor = GuestActor
	}
	if maxPerWindow <= 0 {
		return false
	}

	now := l.now()
	key := actor + "_" + action

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.actions[key][:0]
	for _, ts := range l.actions[key] {
		if now.Sub(ts) < l.window {
			recent = append(recent, ts)
		}
	}

	if len(recent) >= maxPerWindow {
		l.actions[key] = recent
		return false
	}

	l.actions[key] = append(recent, now)
	return true
}

// Clear forgets recorded invocations for one (actor, action) pair.
func (l *Limiter) Clear(actor, action string) {
	if actor == "" {
		actor = GuestActor
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.actions, actor+"_"+action)
}
