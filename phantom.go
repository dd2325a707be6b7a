package secs

import (
	"reflect"
)

// With is a phantom query filter: matching entities must carry a T.
//
// Usage:
//
//	q := secs.NewQuery(secs.With[Surface]{}, secs.Without[Minimized]{})
type With[T any] struct{}

// Without is a phantom query filter: matching entities must not carry a T.
type Without[T any] struct{}

// Filter is implemented by With and Without.
type Filter interface {
	ComponentType() reflect.Type
	IsWithout() bool
}

// ComponentType implements Filter.
func (With[T]) ComponentType() reflect.Type {
	return reflect.TypeFor[T]()
}

// IsWithout implements Filter.
func (With[T]) IsWithout() bool {
	return false
}

// ComponentType implements Filter.
func (Without[T]) ComponentType() reflect.Type {
	return reflect.TypeFor[T]()
}

// IsWithout implements Filter.
func (Without[T]) IsWithout() bool {
	return true
}

// TypeOf returns the reflect.Type of T. It is a shorthand for declaring access.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}
