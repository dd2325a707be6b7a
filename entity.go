package secs

import (
	"fmt"
	"sync"
)

// Entity identifies a group of components in a World.
// Gen distinguishes a recycled ID from the entity that previously held it.
type Entity struct {
	ID  uint32
	Gen uint32
}

// String returns the entity as "id:gen".
func (e Entity) String() string {
	return fmt.Sprintf("%d:%d", e.ID, e.Gen)
}

// IDAllocator hands out entity identifiers and recycles freed ones with a bumped
// generation. It is owned by a World and is safe for concurrent use, so command
// buffers can reserve identifiers while the world is only read-locked.
type IDAllocator struct {
	mu   sync.Mutex
	free []uint32
	gens []uint32
}

// NewIDAllocator returns an empty allocator.
func NewIDAllocator() *IDAllocator {
	return &IDAllocator{}
}

// Alloc returns a fresh or recycled identifier.
func (a *IDAllocator) Alloc() Entity {
	a.mu.Lock()
	defer a.mu.Unlock()

	if n := len(a.free); n > 0 {
		id := a.free[n-1]
		a.free = a.free[:n-1]
		return Entity{ID: id, Gen: a.gens[id]}
	}
	id := uint32(len(a.gens))
	a.gens = append(a.gens, 1)
	return Entity{ID: id, Gen: 1}
}

// Free releases e for reuse. Freeing a stale or unknown identifier is a no-op.
func (a *IDAllocator) Free(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(e.ID) >= len(a.gens) || a.gens[e.ID] != e.Gen {
		return false
	}
	a.gens[e.ID]++
	a.free = append(a.free, e.ID)
	return true
}

// Current reports whether e is the latest generation handed out for its ID.
func (a *IDAllocator) Current(e Entity) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(e.ID) < len(a.gens) && a.gens[e.ID] == e.Gen
}

// Reset forgets every identifier. Only call it on an empty world.
func (a *IDAllocator) Reset() {
	a.mu.Lock()
	a.free = a.free[:0]
	a.gens = a.gens[:0]
	a.mu.Unlock()
}

// Len returns how many identifiers have ever been issued.
func (a *IDAllocator) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.gens)
}
