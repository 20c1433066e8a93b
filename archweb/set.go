package archweb

import "sort"

// Set is a set of package names
type Set map[string]struct{}

// NewSet creates a Set from the given names
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts a name into the set
func (s Set) Add(name string) {
	s[name] = struct{}{}
}

// Has reports whether the set contains the name
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// AddAll inserts every name from other into the set
func (s Set) AddAll(other Set) {
	for n := range other {
		s[n] = struct{}{}
	}
}

// Diff returns the names in s that are not in other
func (s Set) Diff(other Set) Set {
	out := make(Set)
	for n := range s {
		if !other.Has(n) {
			out.Add(n)
		}
	}
	return out
}

// SubsetOf reports whether every name in s is also in other
func (s Set) SubsetOf(other Set) bool {
	for n := range s {
		if !other.Has(n) {
			return false
		}
	}
	return true
}

// Sorted returns the set's names in sorted order
func (s Set) Sorted() []string {
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
