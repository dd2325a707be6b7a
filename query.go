package secs

import (
	"reflect"
	"sync"
)

// Query selects entities by component signature and caches the result.
//
// The cache is keyed by the world's structural version, so it stays valid for as
// long as no entity or component is added or removed. Schedules refresh the
// caches of their systems in the Prepare phase.
type Query struct {
	mu sync.Mutex

	require []reflect.Type
	exclude []reflect.Type

	world       *World
	requireMask Bitmask
	excludeMask Bitmask

	version  uint64
	prepared bool
	cache    []Entity
}

// NewQuery builds a query from With and Without filters.
func NewQuery(filters ...Filter) *Query {
	q := &Query{}
	for _, f := range filters {
		if f.IsWithout() {
			q.exclude = append(q.exclude, f.ComponentType())
		} else {
			q.require = append(q.require, f.ComponentType())
		}
	}
	return q
}

// Reads returns the component types the query requires.
func (q *Query) Reads() []reflect.Type {
	return q.require
}

// Prepare resolves the query against the current shape of the world.
func (q *Query) Prepare(r Reader) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prepare(r.view().w)
}

func (q *Query) prepare(w *World) {
	if q.world != w {
		q.world = w
		q.prepared = false
		q.requireMask, q.excludeMask = Bitmask{}, Bitmask{}
		for _, t := range q.require {
			q.requireMask.Set(w.registry.register(t))
		}
		for _, t := range q.exclude {
			q.excludeMask.Set(w.registry.register(t))
		}
	}
	if q.prepared && q.version == w.version {
		return
	}

	q.cache = q.cache[:0]
	for i := range w.entities {
		rec := &w.entities[i]
		if !rec.alive || !rec.mask.ContainsAll(q.requireMask) || rec.mask.ContainsAny(q.excludeMask) {
			continue
		}
		q.cache = append(q.cache, Entity{ID: uint32(i), Gen: rec.gen})
	}
	q.version = w.version
	q.prepared = true
}

// Entities returns a copy of the matching entities in ID order.
func (q *Query) Entities(r Reader) []Entity {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prepare(r.view().w)
	out := make([]Entity, len(q.cache))
	copy(out, q.cache)
	return out
}

// Each calls fn for every matching entity, stopping at the first error.
func (q *Query) Each(r Reader, fn func(e Entity) error) error {
	for _, e := range q.Entities(r) {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of matching entities.
func (q *Query) Len(r Reader) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.prepare(r.view().w)
	return len(q.cache)
}
