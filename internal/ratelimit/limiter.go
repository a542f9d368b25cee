// Package ratelimit implements the per-identifier attempt counter with a
// sliding window and lockout used to gate login attempts.
//
// State is process-wide and in-memory only: it is initialized empty at
// process start, entries are created lazily on first check, and nothing is
// persisted across restarts. Limiters are plain injectable values, not
// globals, so tests can isolate instances.
package ratelimit

import (
	"sync"
	"time"
)

// Config holds the limiter thresholds. The defaults are deliberately
// exported constants rather than inline literals.
type Config struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 15 * time.Minute
	DefaultLockout     = time.Hour
)

// DefaultConfig returns the production thresholds.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: DefaultMaxAttempts,
		Window:      DefaultWindow,
		Lockout:     DefaultLockout,
	}
}

// Result is the outcome of one Check call. RetryAfterSeconds is zero when
// the attempt is allowed, otherwise the ceiling of the remaining lockout
// time in seconds.
type Result struct {
	Allowed           bool
	RetryAfterSeconds int
}

// state tracks one identifier. Zero value means fresh (no attempts).
type state struct {
	attempts    int
	windowStart time.Time
	lockedUntil time.Time
}

// Limiter is the per-identifier state machine: fresh → counting → locked,
// back to fresh on window expiry or once the lockout epoch has elapsed.
// While locked, the lock duration takes precedence over window reset.
type Limiter struct {
	mu     sync.Mutex
	cfg    Config
	now    func() time.Time
	states map[string]*state
}

// New returns a Limiter using the wall clock.
func New(cfg Config) *Limiter {
	return NewWithClock(cfg, time.Now)
}

// NewWithClock returns a Limiter with an injected clock, for tests.
func NewWithClock(cfg Config, now func() time.Time) *Limiter {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Lockout <= 0 {
		cfg.Lockout = DefaultLockout
	}
	return &Limiter{
		cfg:    cfg,
		now:    now,
		states: make(map[string]*state),
	}
}

// Check records one attempt for identifier and reports whether it may
// proceed. Safe for concurrent use; the read-then-increment pair is
// serialized under the limiter mutex to avoid lost updates.
func (l *Limiter) Check(identifier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	st, ok := l.states[identifier]
	if !ok {
		st = &state{}
		l.states[identifier] = st
	}

	if !st.lockedUntil.IsZero() {
		if now.Before(st.lockedUntil) {
			return Result{RetryAfterSeconds: ceilSeconds(st.lockedUntil.Sub(now))}
		}
		// Lock elapsed: transparently re-enter counting on this check.
		*st = state{}
	} else if !st.windowStart.IsZero() && now.Sub(st.windowStart) > l.cfg.Window {
		*st = state{}
	}

	if st.attempts == 0 {
		st.windowStart = now
	}
	st.attempts++

	if st.attempts > l.cfg.MaxAttempts {
		st.lockedUntil = now.Add(l.cfg.Lockout)
		return Result{RetryAfterSeconds: ceilSeconds(l.cfg.Lockout)}
	}
	return Result{Allowed: true}
}

// Reset forcibly clears the identifier back to fresh, as if no attempt
// had ever been made.
func (l *Limiter) Reset(identifier string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.states, identifier)
}

func ceilSeconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
