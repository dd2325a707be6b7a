package secs

import (
	"sync"
)

// Lockable is implemented by values that hand out read and write guards to a V.
// Shared implements it, and so does any type that embeds a *Shared[V].
type Lockable[V any] interface {
	// RLock blocks until a read guard is available.
	RLock() *ReadGuard[V]
	// Lock blocks until an exclusive write guard is available.
	Lock() *WriteGuard[V]
}

// Shared is a value protected by a reader-writer lock.
// It is shared by pointer: every holder of the *Shared[V] observes the same value,
// and the value is reclaimed once the last holder drops it.
//
// A Shared must not be copied after first use.
type Shared[V any] struct {
	mu sync.RWMutex
	v  *V
}

// NewShared returns a Shared holding a copy of v.
func NewShared[V any](v V) *Shared[V] {
	return &Shared[V]{v: &v}
}

// Wrap returns a Shared that takes ownership of p.
// The caller must not access p directly afterwards.
func Wrap[V any](p *V) *Shared[V] {
	if p == nil {
		p = new(V)
	}
	return &Shared[V]{v: p}
}

// RLock implements Lockable.
func (s *Shared[V]) RLock() *ReadGuard[V] {
	s.mu.RLock()
	return &ReadGuard[V]{v: s.v, mu: &s.mu}
}

// Lock implements Lockable.
func (s *Shared[V]) Lock() *WriteGuard[V] {
	s.mu.Lock()
	return &WriteGuard[V]{v: s.v, mu: &s.mu}
}

// Read calls fn with the value while holding the read lock.
func (s *Shared[V]) Read(fn func(v *V)) {
	g := s.RLock()
	defer g.Release()
	fn(g.Get())
}

// Write calls fn with the value while holding the write lock.
func (s *Shared[V]) Write(fn func(v *V)) {
	g := s.Lock()
	defer g.Release()
	fn(g.Get())
}

// ReadGuard grants shared access to a value until Release is called.
// Callers must treat the value as read-only unless it carries its own synchronization.
type ReadGuard[V any] struct {
	v        *V
	mu       *sync.RWMutex
	released bool
}

// Get returns the guarded value. It panics if the guard was released.
func (g *ReadGuard[V]) Get() *V {
	if g.released {
		panic("secs: read guard used after release")
	}
	return g.v
}

// Release gives up the read lock. Calling it more than once is a no-op.
func (g *ReadGuard[V]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.mu.RUnlock()
}

// WriteGuard grants exclusive access to a value until Release is called.
type WriteGuard[V any] struct {
	v        *V
	mu       *sync.RWMutex
	released bool
}

// Get returns the guarded value. It panics if the guard was released.
func (g *WriteGuard[V]) Get() *V {
	if g.released {
		panic("secs: write guard used after release")
	}
	return g.v
}

// Release gives up the write lock. Calling it more than once is a no-op.
func (g *WriteGuard[V]) Release() {
	if g.released {
		return
	}
	g.released = true
	g.mu.Unlock()
}

// ReadWith acquires a read guard from l for the duration of fn.
func ReadWith[V any](l Lockable[V], fn func(v *V)) {
	g := l.RLock()
	defer g.Release()
	fn(g.Get())
}

// WriteWith acquires a write guard from l for the duration of fn.
func WriteWith[V any](l Lockable[V], fn func(v *V)) {
	g := l.Lock()
	defer g.Release()
	fn(g.Get())
}
