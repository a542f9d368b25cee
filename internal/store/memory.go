package store

import (
	"context"
	"sync"

	"authvault/internal/common"
)

// MemoryKV is an in-memory KV used by tests and the restart-simulation
// property (values survive a Snapshot/Restore cycle byte-identically).
type MemoryKV struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, common.ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	m.data[key] = v
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Snapshot returns a deep copy of the current contents.
func (m *MemoryKV) Snapshot() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.data))
	for k, v := range m.data {
		c := make([]byte, len(v))
		copy(c, v)
		out[k] = c
	}
	return out
}

// Restore replaces the contents with a previously taken snapshot,
// simulating a process restart against the same backing medium.
func (m *MemoryKV) Restore(snapshot map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte, len(snapshot))
	for k, v := range snapshot {
		c := make([]byte, len(v))
		copy(c, v)
		m.data[k] = c
	}
}
