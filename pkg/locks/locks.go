// Package locks provides keyed mutual exclusion for ticket creation.
package locks

import (
	"context"
	"sync"
)

// Locker serializes work on a key.
type Locker interface {
	// Lock blocks until the key is held or ctx is done. The returned function releases the
	// key and is safe to call more than once.
	Lock(ctx context.Context, key string) (func(), error)
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// Memory is an in-process Locker. Keys are forgotten once nobody holds or waits on them.
type Memory struct {
	mu   sync.Mutex
	keys map[string]*memoryEntry
}

// NewMemory creates a new in-process locker.
func NewMemory() *Memory {
	return &Memory{
		keys: make(map[string]*memoryEntry),
	}
}

func (m *Memory) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	e, ok := m.keys[key]
	if !ok {
		e = &memoryEntry{ch: make(chan struct{}, 1)}
		m.keys[key] = e
	}
	e.refs++
	m.mu.Unlock()

	select {
	case e.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, e)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.ch
			m.release(key, e)
		})
	}, nil
}

func (m *Memory) release(key string, e *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e.refs--
	if e.refs == 0 {
		delete(m.keys, key)
	}
}

// held returns the number of keys currently tracked.
func (m *Memory) held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}
