package secs

import (
	"reflect"
	"slices"
)

// AccessMeta describes which component and resource types a unit reads or writes.
//
// Component writes are allowed under the world's read lock as long as the
// component carries its own synchronization. Resource writes are not: schedules
// reject units that declare them.
type AccessMeta struct {
	Reads     []reflect.Type
	Writes    []reflect.Type
	ResReads  []reflect.Type
	ResWrites []reflect.Type

	readsSet  map[reflect.Type]struct{}
	writesSet map[reflect.Type]struct{}
}

// IsEmpty reports whether nothing was declared.
func (a *AccessMeta) IsEmpty() bool {
	return len(a.Reads) == 0 && len(a.Writes) == 0 && len(a.ResReads) == 0 && len(a.ResWrites) == 0
}

// Merge adds other's declarations to a, skipping duplicates.
func (a *AccessMeta) Merge(other *AccessMeta) {
	if other == nil {
		return
	}
	a.Reads = appendUnique(a.Reads, other.Reads...)
	a.Writes = appendUnique(a.Writes, other.Writes...)
	a.ResReads = appendUnique(a.ResReads, other.ResReads...)
	a.ResWrites = appendUnique(a.ResWrites, other.ResWrites...)
	a.PrepareSets()
}

// PrepareSets precomputes lookup sets for Conflicts.
func (a *AccessMeta) PrepareSets() {
	a.readsSet = typeSet(a.Reads)
	a.writesSet = typeSet(a.Writes)
}

func typeSet(types []reflect.Type) map[reflect.Type]struct{} {
	if len(types) == 0 {
		return nil
	}
	set := make(map[reflect.Type]struct{}, len(types))
	for _, t := range types {
		set[t] = struct{}{}
	}
	return set
}

// Conflicts reports whether a writes a component type that other reads or
// writes, or reads one that other writes.
func (a *AccessMeta) Conflicts(other *AccessMeta) bool {
	has := func(set map[reflect.Type]struct{}, list []reflect.Type, t reflect.Type) bool {
		if set != nil {
			_, ok := set[t]
			return ok
		}
		return slices.Contains(list, t)
	}
	for _, w := range a.Writes {
		if has(other.readsSet, other.Reads, w) || has(other.writesSet, other.Writes, w) {
			return true
		}
	}
	for _, r := range a.Reads {
		if has(other.writesSet, other.Writes, r) {
			return true
		}
	}
	return false
}

func appendUnique(dst []reflect.Type, src ...reflect.Type) []reflect.Type {
	for _, t := range src {
		if !slices.Contains(dst, t) {
			dst = append(dst, t)
		}
	}
	return dst
}
