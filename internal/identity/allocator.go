// Package identity issues short ids: small positive integers that players
// type into commands to refer to a creature.
//
// Allocation is a pure function of the ids currently in use. Freed ids are
// reused smallest first, so the numbers stay short for the life of a save.
package identity

// Set is a collection of short ids in use.
type Set map[int]struct{}

// NewSet builds a set from ids.
func NewSet(ids ...int) Set {
	set := make(Set, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Add marks id as used.
func (s Set) Add(id int) {
	s[id] = struct{}{}
}

// Has reports whether id is used.
func (s Set) Has(id int) bool {
	_, ok := s[id]
	return ok
}

// NextUnused returns the smallest n >= 1 that is not in used.
func NextUnused(used Set) int {
	// Among 1..len(used)+1 at least one value is free.
	for n := 1; ; n++ {
		if !used.Has(n) {
			return n
		}
	}
}
