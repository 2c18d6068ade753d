package store

import (
	"fmt"
	"sync"
)

// minSubscriberBuffer is the smallest buffer handed to a subscriber.
const minSubscriberBuffer = 100

// MemoryStore is an in-memory implementation of [Store].
//
// MemoryStore holds a fixed number of slots. Subscribers receive updates via
// buffered channels sized to hold at least one update per slot, so a run
// that fills every slot once never drops a notification. Sends stay
// non-blocking; a subscriber that falls behind further than that misses
// updates instead of stalling the writers.
type MemoryStore[T any] struct {
	mu     sync.RWMutex
	slots  []T
	filled []bool
	count  int

	subscribers map[chan T]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a [MemoryStore] with size slots.
func NewMemoryStore[T any](size int) *MemoryStore[T] {
	if size < 0 {
		size = 0
	}
	return &MemoryStore[T]{
		slots:       make([]T, size),
		filled:      make([]bool, size),
		subscribers: make(map[chan T]struct{}),
	}
}

// Size returns the number of slots.
func (m *MemoryStore[T]) Size() int {
	return len(m.slots)
}

// Put stores result in slot index and notifies all subscribers.
//
// Returns an error if index is outside the store's slots.
func (m *MemoryStore[T]) Put(index int, result T) error {
	m.mu.Lock()
	if index < 0 || index >= len(m.slots) {
		m.mu.Unlock()
		return fmt.Errorf("slot %d out of range [0, %d)", index, len(m.slots))
	}
	if !m.filled[index] {
		m.filled[index] = true
		m.count++
	}
	m.slots[index] = result
	m.mu.Unlock()

	m.notifySubscribers(result)
	return nil
}

// Results returns a snapshot of all filled slots in slot order.
func (m *MemoryStore[T]) Results() []T {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]T, 0, m.count)
	for i, ok := range m.filled {
		if ok {
			results = append(results, m.slots[i])
		}
	}
	return results
}

// Len returns the number of filled slots.
func (m *MemoryStore[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// Subscribe creates a new subscription and returns a channel for receiving updates.
//
// Caller must call [MemoryStore.Unsubscribe] when done to prevent resource leaks.
func (m *MemoryStore[T]) Subscribe() <-chan T {
	ch := make(chan T, max(minSubscriberBuffer, len(m.slots)))

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe removes a subscription and closes its channel.
//
// After calling Unsubscribe, the channel will be closed and no further
// updates will be sent. Safe to call multiple times or with an unknown channel.
func (m *MemoryStore[T]) Unsubscribe(ch <-chan T) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	// find and delete the channel (need to convert to the right type)
	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends the result to all active subscribers without blocking.
func (m *MemoryStore[T]) notifySubscribers(result T) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- result:
		default:
			// subscriber is slow, drop the message
		}
	}
}
