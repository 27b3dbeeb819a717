// Package cache provides a small in-memory TTL cache used to shield
// the telemetry backend from repeated identical queries.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrNotFound = errors.New("cache entry not found")

type entry struct {
	v         any
	expiresAt time.Time
}

type Memory struct {
	mu         sync.Mutex
	entries    map[string]entry
	defaultTTL time.Duration
}

func NewMemory(defaultTTL time.Duration) *Memory {
	return &Memory{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
	}
}

func (m *Memory) Get(k string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, found := m.entries[k]
	if !found {
		return nil, ErrNotFound
	}
	if time.Since(e.expiresAt) > 0 {
		slog.Debug("cache entry expired", "key", k)
		delete(m.entries, k)
		return nil, ErrNotFound
	}
	return e.v, nil
}

func (m *Memory) Set(k string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[k] = entry{v: v, expiresAt: time.Now().Add(m.defaultTTL)}
	slog.Debug("new cache entry", "key", k)
}

// GetOrSet returns the cached value for key, computing and storing it
// with valueFunc on a miss.
func (m *Memory) GetOrSet(ctx context.Context, key string, valueFunc func(ctx context.Context) (any, error)) (any, error) {
	v, err := m.Get(key)
	if err == nil {
		return v, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	v, err = valueFunc(ctx)
	if err != nil {
		return nil, err
	}
	m.Set(key, v)
	return v, nil
}
