// Package locks provides named exclusive locks used to serialize
// read-modify-write sequences against the record store.
package locks

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

type entry struct {
	sem  *semaphore.Weighted
	refs int
}

// Registry hands out exclusive locks keyed by name. Waiters on the same
// name queue FIFO. There is deliberately no wait timeout: a caller queued
// on a held lock waits until it is released. Callers pass their operation
// context; nothing in this package installs a deadline on it.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Acquire takes the exclusive lock for name, blocking until it is
// available. It returns a release function that must be called exactly
// once on every exit path, typically via defer.
func (r *Registry) Acquire(ctx context.Context, name string) (func(), error) {
	r.mu.Lock()
	e, ok := r.entries[name]
	if !ok {
		e = &entry{sem: semaphore.NewWeighted(1)}
		r.entries[name] = e
	}
	e.refs++
	r.mu.Unlock()

	if err := e.sem.Acquire(ctx, 1); err != nil {
		r.put(name, e)
		return nil, err
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			e.sem.Release(1)
			r.put(name, e)
		})
	}
	return release, nil
}

// put drops one reference and removes the entry once nobody holds or
// waits on it, so the registry does not grow with every key ever locked.
func (r *Registry) put(name string, e *entry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(r.entries, name)
	}
}
