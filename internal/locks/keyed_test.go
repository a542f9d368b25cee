package locks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MutualExclusion(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	var holders int
	var maxHolders int
	var mu sync.Mutex

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := r.Acquire(ctx, "record:abc")
			if !assert.NoError(t, err) {
				return
			}
			defer release()

			mu.Lock()
			holders++
			if holders > maxHolders {
				maxHolders = holders
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			holders--
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxHolders)
}

func TestRegistry_IndependentNames(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	release1, err := r.Acquire(ctx, "record:a")
	require.NoError(t, err)
	defer release1()

	// A different name must not block.
	done := make(chan struct{})
	go func() {
		release2, err := r.Acquire(ctx, "record:b")
		assert.NoError(t, err)
		release2()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("acquire on independent name blocked")
	}
}

func TestRegistry_SecondAcquireBlocksUntilRelease(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	release, err := r.Acquire(ctx, "k")
	require.NoError(t, err)

	acquired := make(chan struct{})
	go func() {
		rel, err := r.Acquire(ctx, "k")
		assert.NoError(t, err)
		rel()
		close(acquired)
	}()

	select {
	case <-acquired:
		t.Fatal("second acquire succeeded while lock was held")
	case <-time.After(50 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("second acquire never woke up after release")
	}
}

func TestRegistry_ReleaseIsIdempotent(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	release, err := r.Acquire(ctx, "k")
	require.NoError(t, err)
	release()
	release() // second call must be a no-op

	release2, err := r.Acquire(ctx, "k")
	require.NoError(t, err)
	release2()
}

func TestRegistry_EntriesAreReclaimed(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	for i := 0; i < 100; i++ {
		release, err := r.Acquire(ctx, "k")
		require.NoError(t, err)
		release()
	}

	r.mu.Lock()
	n := len(r.entries)
	r.mu.Unlock()
	assert.Zero(t, n)
}
