package secs

import (
	"reflect"
)

// LazyState is the lifecycle state of a Lazy cell.
type LazyState uint8

const (
	// Pending means the value has not been built yet.
	Pending LazyState = iota
	// Ready means the value is available.
	Ready
	// Dropped means the value was built but its upstream became invalid.
	Dropped
)

// String returns the string representation of the state.
func (s LazyState) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Dropped:
		return "Dropped"
	default:
		return "Unknown"
	}
}

// Lazy holds a value that is produced asynchronously.
//
// A cell starts Pending, becomes Ready once its producer stores a value and becomes
// Dropped when whatever the value depends on goes away. Only SetPending moves a
// Dropped cell back towards Ready, so consumers can tell "never built" from
// "built, now invalid".
//
// Lazy carries no lock of its own. Cells mutated from parallel systems should be
// stored as Shared[Lazy[T]].
//
// Usage:
//
//	surface, ok := cell.TryValue()
//	if !ok {
//	    return nil // try again next tick
//	}
type Lazy[T any] struct {
	state LazyState
	value T
}

// NewPending returns a Pending cell.
func NewPending[T any]() Lazy[T] {
	return Lazy[T]{}
}

// SetReady stores v and moves the cell to Ready, discarding any previous value.
func (l *Lazy[T]) SetReady(v T) {
	l.value = v
	l.state = Ready
}

// SetDropped moves the cell to Dropped and releases the stored value.
func (l *Lazy[T]) SetDropped() {
	var zero T
	l.value = zero
	l.state = Dropped
}

// SetPending re-arms the cell for reconstruction.
func (l *Lazy[T]) SetPending() {
	var zero T
	l.value = zero
	l.state = Pending
}

// State returns the current state.
func (l *Lazy[T]) State() LazyState {
	return l.state
}

// IsPending reports whether the cell is Pending.
func (l *Lazy[T]) IsPending() bool {
	return l.state == Pending
}

// IsReady reports whether the cell is Ready.
func (l *Lazy[T]) IsReady() bool {
	return l.state == Ready
}

// IsDropped reports whether the cell is Dropped.
func (l *Lazy[T]) IsDropped() bool {
	return l.state == Dropped
}

// Value returns the stored value. Reading a cell that is not Ready is a programming
// error and panics with a *NotReadyError.
func (l *Lazy[T]) Value() T {
	if l.state != Ready {
		panic(&NotReadyError{Type: reflect.TypeFor[T](), State: l.state})
	}
	return l.value
}

// TryValue returns the stored value and true when the cell is Ready.
func (l *Lazy[T]) TryValue() (T, bool) {
	if l.state != Ready {
		var zero T
		return zero, false
	}
	return l.value, true
}
