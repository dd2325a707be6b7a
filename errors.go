package secs

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrNoSuchEntity is returned when an entity is not alive in the world.
	ErrNoSuchEntity = errors.New("secs: no such entity")

	// ErrNoSuchComponent is returned when an entity does not carry the requested component.
	ErrNoSuchComponent = errors.New("secs: no such component")

	// ErrNoSuchResource is returned when the world holds no resource of the requested type.
	ErrNoSuchResource = errors.New("secs: no such resource")

	// ErrAccessDenied is returned when a restricted view is asked for a type
	// outside its declared access.
	ErrAccessDenied = errors.New("secs: access not declared")

	// ErrExclusiveResource is returned when a schedule is built with a unit that
	// requires exclusive write access to a world resource.
	ErrExclusiveResource = errors.New("secs: exclusive resource access is not supported")

	// ErrNotReady is the cause carried by NotReadyError.
	ErrNotReady = errors.New("secs: lazy value not ready")
)

// ResolveError reports a failed component lookup on a specific entity.
type ResolveError struct {
	Entity Entity
	Type   reflect.Type
	Err    error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("secs: resolve %v on %v: %v", e.Type, e.Entity, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// BuildError reports a schedule that could not be constructed.
type BuildError struct {
	Schedule string
	Unit     string
	Type     reflect.Type
	Err      error
}

func (e *BuildError) Error() string {
	if e.Type != nil {
		return fmt.Sprintf("secs: build %s: unit %s writes resource %v: %v", e.Schedule, e.Unit, e.Type, e.Err)
	}
	return fmt.Sprintf("secs: build %s: unit %s: %v", e.Schedule, e.Unit, e.Err)
}

func (e *BuildError) Unwrap() error {
	return e.Err
}

// PanicError wraps a panic recovered from a runnable unit.
type PanicError struct {
	Unit  string
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("secs: panic in %s: %v", e.Unit, e.Value)
}

// Unwrap returns the panic value if it was an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// NotReadyError is the panic value raised when a Lazy is read while not Ready.
type NotReadyError struct {
	Type  reflect.Type
	State LazyState
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("secs: lazy %v read while %v", e.Type, e.State)
}

func (e *NotReadyError) Unwrap() error {
	return ErrNotReady
}
