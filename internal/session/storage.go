// Package session holds the credentials of one jam process: the token triple and the
// single-use PKCE verifier slot. Nothing here outlives the process.
package session

import (
	"fmt"
	"sync"

	"github.com/desertthunder/jammming/internal/shared"
)

// Storage is a session-scoped string key/value store.
type Storage interface {
	// Get returns the value for key and whether it was present.
	Get(key string) (string, bool, error)
	// Set stores a single value.
	Set(key, value string) error
	// SetAll stores every item or none of them.
	SetAll(items map[string]string) error
	// Delete removes the keys; absent keys are ignored.
	Delete(keys ...string) error
}

// MemoryStorage is a map-backed [Storage].
type MemoryStorage struct {
	mu    sync.RWMutex
	items map[string]string
}

// NewMemoryStorage creates an empty [MemoryStorage].
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) Get(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok, nil
}

func (m *MemoryStorage) Set(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) SetAll(items map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range items {
		m.items[k] = v
	}
	return nil
}

func (m *MemoryStorage) Delete(keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.items, k)
	}
	return nil
}

// Len reports the number of stored keys.
func (m *MemoryStorage) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

// Open returns the backend named by kind ("memory", "sqlite" or "" for memory) and a func that
// releases it.
func Open(kind string) (Storage, func() error, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStorage(), func() error { return nil }, nil
	case "sqlite":
		s, err := NewSQLiteStorage()
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("%w: unknown session storage %q", shared.ErrInvalidConfig, kind)
}
