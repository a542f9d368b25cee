package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is a manually advanced clock for limiter tests.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter() (*Limiter, *fakeClock) {
	clock := newFakeClock()
	l := NewWithClock(Config{
		MaxAttempts: 5,
		Window:      15 * time.Minute,
		Lockout:     time.Hour,
	}, clock.Now)
	return l, clock
}

func TestLimiter_AllowsUpToMaxThenLocks(t *testing.T) {
	l, _ := newTestLimiter()

	for i := 0; i < 5; i++ {
		res := l.Check("x")
		assert.True(t, res.Allowed, "attempt %d", i+1)
		assert.Equal(t, 0, res.RetryAfterSeconds)
	}

	res := l.Check("x")
	assert.False(t, res.Allowed)
	assert.Equal(t, 3600, res.RetryAfterSeconds)
}

func TestLimiter_LockoutExpiry(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 6; i++ {
		l.Check("x")
	}

	// Still locked halfway through, with a shrinking retry hint.
	clock.Advance(30 * time.Minute)
	res := l.Check("x")
	assert.False(t, res.Allowed)
	assert.Equal(t, 1800, res.RetryAfterSeconds)

	// Past lockedUntil the same check transparently re-enters counting.
	clock.Advance(31 * time.Minute)
	res = l.Check("x")
	assert.True(t, res.Allowed)
}

func TestLimiter_RetryAfterIsCeiling(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 6; i++ {
		l.Check("x")
	}

	clock.Advance(59*time.Minute + 59*time.Second + 500*time.Millisecond)
	res := l.Check("x")
	assert.False(t, res.Allowed)
	assert.Equal(t, 1, res.RetryAfterSeconds)
}

func TestLimiter_WindowExpiryResetsCounting(t *testing.T) {
	l, clock := newTestLimiter()

	for i := 0; i < 5; i++ {
		l.Check("x")
	}

	// Window elapsed before the would-be locking attempt: fresh again.
	clock.Advance(16 * time.Minute)
	res := l.Check("x")
	assert.True(t, res.Allowed)

	// And a full fresh budget is available.
	for i := 0; i < 4; i++ {
		assert.True(t, l.Check("x").Allowed)
	}
	assert.False(t, l.Check("x").Allowed)
}

func TestLimiter_LockTakesPrecedenceOverWindowReset(t *testing.T) {
	l, clock := newTestLimiter()
	for i := 0; i < 6; i++ {
		l.Check("x")
	}

	// Window has long expired but the lock epoch has not.
	clock.Advance(20 * time.Minute)
	res := l.Check("x")
	assert.False(t, res.Allowed)
}

func TestLimiter_Reset(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 6; i++ {
		l.Check("x")
	}
	assert.False(t, l.Check("x").Allowed)

	l.Reset("x")
	for i := 0; i < 5; i++ {
		assert.True(t, l.Check("x").Allowed)
	}
	assert.False(t, l.Check("x").Allowed)
}

func TestLimiter_IdentifiersAreIndependent(t *testing.T) {
	l, _ := newTestLimiter()
	for i := 0; i < 6; i++ {
		l.Check("x")
	}
	assert.False(t, l.Check("x").Allowed)
	assert.True(t, l.Check("y").Allowed)
}

func TestLimiter_ConcurrentChecks(t *testing.T) {
	l, _ := newTestLimiter()

	var wg sync.WaitGroup
	allowed := make([]bool, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			allowed[i] = l.Check("x").Allowed
		}(i)
	}
	wg.Wait()

	n := 0
	for _, a := range allowed {
		if a {
			n++
		}
	}
	// No lost updates: exactly MaxAttempts of the racing checks win.
	assert.Equal(t, 5, n)
}
