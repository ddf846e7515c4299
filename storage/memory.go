package storage

import (
	"context"
	"sync"
)

type memoryData struct {
	mu       sync.RWMutex
	values   map[string]string
	watchers map[*watchQueue]*Memory
}

// Memory is an in-process Storage. Handles created with Peer share the same entries and
// see each other's changes through Watch, the way two browser tabs share localStorage.
type Memory struct {
	data *memoryData
}

var (
	_ Storage = (*Memory)(nil)
	_ Watcher = (*Memory)(nil)
)

func NewMemory() *Memory {
	return &Memory{data: &memoryData{
		values:   make(map[string]string),
		watchers: make(map[*watchQueue]*Memory),
	}}
}

// Peer returns another handle on the same entries.
func (m *Memory) Peer() *Memory {
	return &Memory{data: m.data}
}

func (m *Memory) Get(key string) (string, error) {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	v, ok := m.data.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(key, value string) error {
	return m.SetMany(map[string]string{key: value})
}

func (m *Memory) SetMany(values map[string]string) error {
	keys := make([]string, 0, len(values))
	m.data.mu.Lock()
	for k, v := range values {
		m.data.values[k] = v
		keys = append(keys, k)
	}
	m.data.mu.Unlock()

	m.notify(keys)
	return nil
}

func (m *Memory) Remove(keys ...string) error {
	removed := make([]string, 0, len(keys))
	m.data.mu.Lock()
	for _, k := range keys {
		if _, ok := m.data.values[k]; ok {
			delete(m.data.values, k)
			removed = append(removed, k)
		}
	}
	m.data.mu.Unlock()

	m.notify(removed)
	return nil
}

// Keys returns a snapshot of the stored keys.
func (m *Memory) Keys() []string {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	keys := make([]string, 0, len(m.data.values))
	for k := range m.data.values {
		keys = append(keys, k)
	}
	return keys
}

// Watchers reports how many Watch calls are running across every handle on the data.
func (m *Memory) Watchers() int {
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()
	return len(m.data.watchers)
}

func (m *Memory) Watch(ctx context.Context, fn func(key string)) error {
	q := newWatchQueue()
	m.data.mu.Lock()
	m.data.watchers[q] = m
	m.data.mu.Unlock()

	defer func() {
		m.data.mu.Lock()
		delete(m.data.watchers, q)
		m.data.mu.Unlock()
	}()

	return q.run(ctx, fn)
}

func (m *Memory) notify(keys []string) {
	if len(keys) == 0 {
		return
	}
	m.data.mu.RLock()
	defer m.data.mu.RUnlock()

	for q, owner := range m.data.watchers {
		// A handle never hears about its own writes.
		if owner == m {
			continue
		}
		q.push(keys...)
	}
}

// watchQueue decouples writers from watcher callbacks so a callback that writes back
// to the store cannot block another handle.
type watchQueue struct {
	mu      sync.Mutex
	pending []string
	wake    chan struct{}
}

func newWatchQueue() *watchQueue {
	return &watchQueue{wake: make(chan struct{}, 1)}
}

func (q *watchQueue) push(keys ...string) {
	q.mu.Lock()
	q.pending = append(q.pending, keys...)
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

func (q *watchQueue) run(ctx context.Context, fn func(key string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-q.wake:
		}

		q.mu.Lock()
		keys := q.pending
		q.pending = nil
		q.mu.Unlock()

		for _, k := range keys {
			fn(k)
		}
	}
}
