package secs

import (
	"reflect"
)

// Ref is an indirect reference to a component of type T.
//
// A local Ref resolves against whichever entity the calling system is
// processing; a foreign Ref always resolves against its stored target. Systems
// written against a Ref do not need to know which one they were given, which
// lets assembly code decide whether a consumer reads its own T or another
// entity's.
//
// Usage:
//
//	type Renderer struct {
//	    Camera secs.Ref[Camera]
//	}
//
//	cam, err := r.Camera.Resolve(view, self)
type Ref[T any] struct {
	target  Entity
	foreign bool
}

// Local returns a reference to the T on the entity being processed.
func Local[T any]() Ref[T] {
	return Ref[T]{}
}

// Foreign returns a reference to the T on target.
func Foreign[T any](target Entity) Ref[T] {
	return Ref[T]{target: target, foreign: true}
}

// IsLocal reports whether the reference resolves against the calling entity.
func (r Ref[T]) IsLocal() bool {
	return !r.foreign
}

// Target returns the entity the reference resolves against when called for self.
func (r Ref[T]) Target(self Entity) Entity {
	if r.foreign {
		return r.target
	}
	return self
}

// TargetType returns the reflect.Type of T.
func (r Ref[T]) TargetType() reflect.Type {
	return reflect.TypeFor[T]()
}

// Resolve looks up the referenced component. It performs no caching.
// A missing entity or component yields a *ResolveError.
func (r Ref[T]) Resolve(rd Reader, self Entity) (*T, error) {
	return Get[T](rd, r.Target(self))
}

// Valid reports whether the reference currently resolves.
func (r Ref[T]) Valid(rd Reader, self Entity) bool {
	return Has[T](rd, r.Target(self))
}

// Resolve is a function form of Ref.Resolve.
func Resolve[T any](rd Reader, r Ref[T], self Entity) (*T, error) {
	return r.Resolve(rd, self)
}
