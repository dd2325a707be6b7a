package secs

import (
	"reflect"
)

// SystemFunc is the body of a System. It reads the world through v and records
// structural edits in cmd. Returning an error aborts the current tick.
type SystemFunc func(v *View, cmd *CommandBuffer) error

// System is a named unit of logic with declared access and its own command buffer.
//
// Usage:
//
//	sys := secs.NewSystem("upload", upload).
//	    Reads(secs.TypeOf[Mesh]()).
//	    Writes(secs.TypeOf[secs.Shared[Buffer]]()).
//	    Query(meshes)
//
// When any access is declared, the view passed to the body is restricted to it.
type System struct {
	name    string
	fn      SystemFunc
	access  AccessMeta
	queries []*Query
	cmd     CommandBuffer
}

// NewSystem returns a system running fn.
func NewSystem(name string, fn SystemFunc) *System {
	return &System{name: name, fn: fn}
}

// Reads declares read access to component types.
func (s *System) Reads(types ...reflect.Type) *System {
	s.access.Merge(&AccessMeta{Reads: types})
	return s
}

// Writes declares in-place write access to component types.
func (s *System) Writes(types ...reflect.Type) *System {
	s.access.Merge(&AccessMeta{Writes: types})
	return s
}

// ReadsResource declares read access to resource types.
func (s *System) ReadsResource(types ...reflect.Type) *System {
	s.access.Merge(&AccessMeta{ResReads: types})
	return s
}

// WritesResource declares exclusive access to resource types. Schedules refuse
// to build or execute with such a system; use a singleton entity instead.
func (s *System) WritesResource(types ...reflect.Type) *System {
	s.access.Merge(&AccessMeta{ResWrites: types})
	return s
}

// Query registers q so that it is refreshed in the Prepare phase. The query's
// required types are declared as reads.
func (s *System) Query(q *Query) *System {
	s.queries = append(s.queries, q)
	s.access.Merge(&AccessMeta{Reads: q.Reads()})
	return s
}

// Name implements Runnable.
func (s *System) Name() string {
	return s.name
}

// Access implements Runnable.
func (s *System) Access() *AccessMeta {
	return &s.access
}

// Commands implements Deferred.
func (s *System) Commands() *CommandBuffer {
	return &s.cmd
}

// Prepare implements Runnable.
func (s *System) Prepare(v *View) error {
	for _, q := range s.queries {
		q.Prepare(v)
	}
	return nil
}

// Run implements Runnable.
func (s *System) Run(v *View) error {
	s.cmd.bind(v.w)
	return s.fn(v.Restrict(&s.access), &s.cmd)
}
