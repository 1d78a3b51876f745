package objectstore

import (
	"context"
	"sync"
)

// MemoryBackend is an in-process Store backed by a guarded map. It never
// reports timestamps: Record.Timestamp is always nil, matching the
// original in-memory reference implementation this backend is grounded on.
type MemoryBackend struct {
	mu      sync.RWMutex
	data    map[uint32][]byte
	counter uint32
	order   []uint32 // insertion order, for Keys/Rev
}

// NewMemoryBackend creates an empty in-memory object store.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[uint32][]byte)}
}

// Clone returns the same handle: there is no connection to duplicate, and
// the map is already guarded for concurrent callers.
func (m *MemoryBackend) Clone() Store { return m }

func (m *MemoryBackend) Set(_ context.Context, existingKey *uint32, data []byte) (uint32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var key uint32
	if existingKey != nil {
		key = *existingKey
		if _, exists := m.data[key]; !exists {
			m.order = append(m.order, key)
		}
	} else {
		key = m.counter
		m.counter++
		m.order = append(m.order, key)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.data[key] = buf
	return key, nil
}

func (m *MemoryBackend) Get(_ context.Context, key uint32) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	return buf, true, nil
}

func (m *MemoryBackend) Keys(ctx context.Context) (<-chan Record, error) {
	return m.scan(ctx, false)
}

func (m *MemoryBackend) Rev(ctx context.Context) (<-chan Record, error) {
	return m.scan(ctx, true)
}

// scan snapshots the key order under the lock and hands it back through a
// channel buffered to the full snapshot size: there is no producer
// goroutine left running, so a consumer that stops reading partway
// through abandons nothing but garbage-collectable buffer.
func (m *MemoryBackend) scan(_ context.Context, reverse bool) (<-chan Record, error) {
	m.mu.RLock()
	keys := make([]uint32, len(m.order))
	copy(keys, m.order)
	sizes := make(map[uint32]int64, len(keys))
	for _, k := range keys {
		sizes[k] = int64(len(m.data[k]))
	}
	m.mu.RUnlock()

	if reverse {
		for i, j := 0, len(keys)-1; i < j; i, j = i+1, j-1 {
			keys[i], keys[j] = keys[j], keys[i]
		}
	}

	out := make(chan Record, len(keys))
	for _, k := range keys {
		size := sizes[k]
		out <- Record{Key: k, Size: &size}
	}
	close(out)
	return out, nil
}

func (m *MemoryBackend) Close() error { return nil }

var _ Store = (*MemoryBackend)(nil)
