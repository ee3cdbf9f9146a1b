package persistence

import (
	"bytes"
	"errors"
	"sort"
	"sync"
)

var errEngineClosed = errors.New("engine closed")

// MemoryEngine is an in-memory implementation of Engine. Keys are kept sorted
// so scans match the badger engine's ordering.
type MemoryEngine struct {
	mu     sync.RWMutex
	keys   [][]byte
	values map[string][]byte
	closed bool
}

// NewMemoryEngine creates a new in-memory persistence engine
func NewMemoryEngine() *MemoryEngine {
	return &MemoryEngine{values: make(map[string][]byte)}
}

func (m *MemoryEngine) Put(key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errEngineClosed
	}

	k := string(key)
	if _, exists := m.values[k]; !exists {
		i := sort.Search(len(m.keys), func(i int) bool {
			return bytes.Compare(m.keys[i], key) >= 0
		})
		m.keys = append(m.keys, nil)
		copy(m.keys[i+1:], m.keys[i:])
		m.keys[i] = append([]byte(nil), key...)
	}
	m.values[k] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryEngine) ReverseScan(prefix []byte, fn func(key, value []byte) bool) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return errEngineClosed
	}

	for i := len(m.keys) - 1; i >= 0; i-- {
		k := m.keys[i]
		if !bytes.HasPrefix(k, prefix) {
			continue
		}
		if !fn(k, m.values[string(k)]) {
			return nil
		}
	}
	return nil
}

func (m *MemoryEngine) Count(prefix []byte) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, k := range m.keys {
		if bytes.HasPrefix(k, prefix) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryEngine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
