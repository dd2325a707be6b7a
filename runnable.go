package secs

import (
	"runtime/debug"
)

// Runnable is anything a schedule can execute: a single System or a nested Schedule.
//
// Prepare and Run are called while the world is read-locked. Prepare gives the
// unit a chance to refresh query caches and may run concurrently with the
// Prepare of its siblings; Run executes the unit's logic.
type Runnable interface {
	Name() string
	Access() *AccessMeta
	Prepare(v *View) error
	Run(v *View) error
}

// Deferred is implemented by units that record structural edits.
// A top-level schedule flushes the buffers of its direct Deferred children.
type Deferred interface {
	Commands() *CommandBuffer
}

// guard calls fn and turns a panic into a *PanicError.
func guard(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Unit: name, Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
