// Package event is a small synchronous publish/subscribe hub.
package event

import "sync"

type Handler[T any] func(T)

type entry[T any] struct {
	id uint64
	fn Handler[T]
}

// Hub delivers each published value to every current subscriber, in
// subscription order, on the publisher's goroutine. The zero value is ready.
type Hub[T any] struct {
	mu      sync.RWMutex
	nextID  uint64
	entries []entry[T]
}

// Subscribe registers fn until the returned token is released.
func (h *Hub[T]) Subscribe(fn Handler[T]) *Subscription {
	h.mu.Lock()
	h.nextID++
	id := h.nextID
	h.entries = append(h.entries, entry[T]{id: id, fn: fn})
	h.mu.Unlock()

	return &Subscription{release: func() { h.remove(id) }}
}

func (h *Hub[T]) remove(id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, e := range h.entries {
		if e.id == id {
			h.entries = append(h.entries[:i:i], h.entries[i+1:]...)
			return
		}
	}
}

func (h *Hub[T]) Publish(v T) {
	h.mu.RLock()
	snapshot := make([]Handler[T], len(h.entries))
	for i, e := range h.entries {
		snapshot[i] = e.fn
	}
	h.mu.RUnlock()

	for _, fn := range snapshot {
		fn(v)
	}
}

// Len returns the number of live subscriptions.
func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.entries)
}

// Subscription is released at most once, however many times Release is called.
type Subscription struct {
	once    sync.Once
	release func()
}

func (s *Subscription) Release() {
	if s == nil {
		return
	}
	s.once.Do(s.release)
}
