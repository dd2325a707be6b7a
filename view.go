package secs

import (
	"reflect"
	"unsafe"
)

// Reader gives read access to a world. It is implemented by *World and *View.
type Reader interface {
	view() *View
}

// View is a read-only window onto a World.
//
// A restricted view only exposes the component and resource types it was
// created with; anything else resolves to ErrAccessDenied. Systems receive a
// view restricted to their declared access while the world is read-locked.
type View struct {
	w          *World
	restricted bool
	components Bitmask
	resources  map[reflect.Type]struct{}
}

func (v *View) view() *View {
	return v
}

// World returns the underlying world. Callers holding only a read guard must not mutate it.
func (v *View) World() *World {
	return v.w
}

// Restrict returns a view that only exposes the given access. An empty access
// yields an unrestricted view.
func (v *View) Restrict(a *AccessMeta) *View {
	if a == nil || a.IsEmpty() {
		return v
	}
	r := &View{
		w:          v.w,
		restricted: true,
		resources:  make(map[reflect.Type]struct{}, len(a.ResReads)),
	}
	for _, t := range a.Reads {
		r.components.Set(v.w.registry.register(t))
	}
	for _, t := range a.Writes {
		r.components.Set(v.w.registry.register(t))
	}
	for _, t := range a.ResReads {
		r.resources[t] = struct{}{}
	}
	if v.restricted {
		// A sub-view never widens its parent.
		r.components = r.components.And(v.components)
		for t := range r.resources {
			if _, ok := v.resources[t]; !ok {
				delete(r.resources, t)
			}
		}
	}
	return r
}

// Restricted reports whether the view limits access.
func (v *View) Restricted() bool {
	return v.restricted
}

// Alive reports whether e refers to a live entity.
func (v *View) Alive(e Entity) bool {
	return v.w.Alive(e)
}

// Len returns the number of live entities.
func (v *View) Len() int {
	return v.w.alive
}

// Version returns the world's structural version.
func (v *View) Version() uint64 {
	return v.w.version
}

// Entities returns the live entities in ID order.
func (v *View) Entities() []Entity {
	out := make([]Entity, 0, v.w.alive)
	for i := range v.w.entities {
		rec := &v.w.entities[i]
		if rec.alive {
			out = append(out, Entity{ID: uint32(i), Gen: rec.gen})
		}
	}
	return out
}

func (v *View) get(e Entity, t reflect.Type) (unsafe.Pointer, error) {
	id, registered := v.w.registry.lookup(t)
	if v.restricted && (!registered || !v.components.Has(id)) {
		return nil, &ResolveError{Entity: e, Type: t, Err: ErrAccessDenied}
	}
	rec, err := v.w.record(e)
	if err != nil {
		return nil, &ResolveError{Entity: e, Type: t, Err: err}
	}
	if !registered || !rec.mask.Has(id) {
		return nil, &ResolveError{Entity: e, Type: t, Err: ErrNoSuchComponent}
	}
	return rec.components[id], nil
}

// Entities returns the live entities visible through r in ID order.
func Entities(r Reader) []Entity {
	return r.view().Entities()
}
