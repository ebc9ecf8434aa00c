// Package storage provides the string-keyed local persistence used to cache
// learner state across restarts.
package storage

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound is returned by KV.Get for keys that have never been written.
var ErrNotFound = errors.New("key not found")

// KV is a string-keyed store of string values.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
}

// MemoryKV is an in-memory KV. State does not survive the process.
type MemoryKV struct {
	values map[string]string
	mu     sync.RWMutex
}

// NewMemoryKV creates an empty in-memory store.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{values: make(map[string]string)}
}

func (m *MemoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *MemoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
