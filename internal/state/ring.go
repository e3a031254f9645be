package state

import "sync"

// Ring is a fixed-capacity ring buffer that overwrites its oldest entry when
// full. Safe for concurrent use.
type Ring[T any] struct {
	mu    sync.RWMutex
	items []T
	next  int
	full  bool
}

// NewRing creates a ring holding up to capacity items.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 64
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push adds v, dropping the oldest item when the ring is full.
func (r *Ring[T]) Push(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[r.next] = v
	r.next = (r.next + 1) % len(r.items)
	if r.next == 0 {
		r.full = true
	}
}

func (r *Ring[T]) lenLocked() int {
	if r.full {
		return len(r.items)
	}
	return r.next
}

// Tail returns up to n of the most recent items, oldest first. n <= 0 returns
// everything.
func (r *Ring[T]) Tail(n int) []T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	size := r.lenLocked()
	if n <= 0 || n > size {
		n = size
	}
	out := make([]T, n)
	start := r.next - n
	if start < 0 {
		start += len(r.items)
	}
	for i := range out {
		out[i] = r.items[(start+i)%len(r.items)]
	}
	return out
}
