package secs

import (
	"cmp"
)

// Tagged wraps a value with a compile-time usage tag.
//
// Tag never appears at runtime; it only makes Tagged[A, T] and Tagged[B, T]
// distinct component types, so one entity can carry several values of the same
// underlying type:
//
//	type Uniforms struct{}
//	type Vertices struct{}
//
//	w.Spawn(
//	    &secs.Tagged[Uniforms, Buffer]{Value: ubo},
//	    &secs.Tagged[Vertices, Buffer]{Value: vbo},
//	)
//
// Equality with == and use as a map key behave exactly like the wrapped value.
type Tagged[Tag any, T any] struct {
	Value T
}

// NewTagged wraps v under the usage tag K.
func NewTagged[K any, T any](v T) Tagged[K, T] {
	return Tagged[K, T]{Value: v}
}

// Get returns the wrapped value.
func (t Tagged[Tag, T]) Get() T {
	return t.Value
}

// Ptr returns a pointer to the wrapped value.
func (t *Tagged[Tag, T]) Ptr() *T {
	return &t.Value
}

// CompareTagged orders two tagged values by their wrapped values.
func CompareTagged[Tag any, T cmp.Ordered](a, b Tagged[Tag, T]) int {
	return cmp.Compare(a.Value, b.Value)
}
