package secs

import (
	"math/bits"
)

// Bitmask is a set of ComponentIDs. An entity's mask records which components
// it carries; queries and restricted views keep one per filter.
type Bitmask [4]uint64

func bit(id ComponentID) (word int, mask uint64) {
	return int(id >> 6), 1 << (id & 63)
}

// Set adds id.
func (m *Bitmask) Set(id ComponentID) {
	w, b := bit(id)
	m[w] |= b
}

// Clear removes id.
func (m *Bitmask) Clear(id ComponentID) {
	w, b := bit(id)
	m[w] &^= b
}

// Has reports whether id is in the set.
func (m *Bitmask) Has(id ComponentID) bool {
	w, b := bit(id)
	return m[w]&b != 0
}

// ContainsAll reports whether other is a subset of m.
func (m *Bitmask) ContainsAll(other Bitmask) bool {
	for i, w := range other {
		if m[i]&w != w {
			return false
		}
	}
	return true
}

// ContainsAny reports whether m and other intersect.
func (m *Bitmask) ContainsAny(other Bitmask) bool {
	for i, w := range other {
		if m[i]&w != 0 {
			return true
		}
	}
	return false
}

// IsZero reports whether the set is empty.
func (m *Bitmask) IsZero() bool {
	return *m == Bitmask{}
}

// Or returns the union of m and other.
func (m Bitmask) Or(other Bitmask) Bitmask {
	for i := range m {
		m[i] |= other[i]
	}
	return m
}

// And returns the intersection of m and other.
func (m Bitmask) And(other Bitmask) Bitmask {
	for i := range m {
		m[i] &= other[i]
	}
	return m
}

// Count returns the size of the set.
func (m Bitmask) Count() int {
	n := 0
	for _, w := range m {
		n += bits.OnesCount64(w)
	}
	return n
}
