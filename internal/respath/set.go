package respath

import "sort"

// Set is a set of filesystem paths, used for the file/context/missing/build
// dependency collections that feed incremental invalidation.
type Set map[string]struct{}

// NewSet builds a set from the given paths.
func NewSet(paths ...string) Set {
	s := make(Set, len(paths))
	for _, p := range paths {
		s[p] = struct{}{}
	}
	return s
}

// Add inserts a path.
func (s Set) Add(path string) {
	s[path] = struct{}{}
}

// AddAll inserts every path from paths.
func (s Set) AddAll(paths []string) {
	for _, p := range paths {
		s[p] = struct{}{}
	}
}

// Has reports membership.
func (s Set) Has(path string) bool {
	_, ok := s[path]
	return ok
}

// Sorted returns the members in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for p := range s {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Clone copies the set.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for p := range s {
		out[p] = struct{}{}
	}
	return out
}
