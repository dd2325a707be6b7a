package secs

import (
	"sync"
	"sync/atomic"
)

// ChangeFlag is a lock-free dirty marker paired with a value.
//
// Producers set it after mutating the value; the consumer responsible for
// propagating the change reads it and clears it. It is a hint, not a lock:
// there is no compare-and-swap and no wait, and concurrent writers race with
// last-write-wins semantics.
type ChangeFlag struct {
	dirty atomic.Bool
}

// NewClean returns a flag that is not set.
func NewClean() *ChangeFlag {
	return &ChangeFlag{}
}

// NewDirty returns a flag that is set.
func NewDirty() *ChangeFlag {
	f := &ChangeFlag{}
	f.dirty.Store(true)
	return f
}

// Set stores v.
func (f *ChangeFlag) Set(v bool) {
	f.dirty.Store(v)
}

// Get loads the flag.
func (f *ChangeFlag) Get() bool {
	return f.dirty.Load()
}

// Tracked fuses a value with its ChangeFlag.
// Writes through Set or Mutate mark the flag only after the value is stored.
type Tracked[T any] struct {
	mu    sync.RWMutex
	value T
	flag  ChangeFlag
}

// NewTracked returns a Tracked holding v. The flag starts set when dirty is true.
func NewTracked[T any](v T, dirty bool) *Tracked[T] {
	t := &Tracked[T]{value: v}
	t.flag.Set(dirty)
	return t
}

// Value returns a copy of the tracked value.
func (t *Tracked[T]) Value() T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.value
}

// Set stores v and marks the value changed.
func (t *Tracked[T]) Set(v T) {
	t.mu.Lock()
	t.value = v
	t.mu.Unlock()
	t.flag.Set(true)
}

// Mutate calls fn with the value under the write lock and marks it changed.
func (t *Tracked[T]) Mutate(fn func(v *T)) {
	t.mu.Lock()
	fn(&t.value)
	t.mu.Unlock()
	t.flag.Set(true)
}

// Changed reports whether the value was marked since the last Clear.
func (t *Tracked[T]) Changed() bool {
	return t.flag.Get()
}

// Clear resets the flag.
func (t *Tracked[T]) Clear() {
	t.flag.Set(false)
}

// Flag exposes the embedded flag.
func (t *Tracked[T]) Flag() *ChangeFlag {
	return &t.flag
}
