package deps

import (
	"slices"
	"strings"
)

// commentPrefix marks extractor output lines that are not dependencies.
const commentPrefix = "#"

// Set is an unordered collection of dependency strings.
type Set map[string]struct{}

// NewSet returns a Set holding items.
func NewSet(items ...string) Set {
	s := make(Set, len(items))
	s.Add(items...)

	return s
}

// Add inserts items.
func (s Set) Add(items ...string) {
	for _, item := range items {
		s[item] = struct{}{}
	}
}

// Has reports whether item is present.
func (s Set) Has(item string) bool {
	_, ok := s[item]

	return ok
}

// Sorted returns the items in lexicographic order.
func (s Set) Sorted() []string {
	items := make([]string, 0, len(s))
	for item := range s {
		items = append(items, item)
	}

	slices.Sort(items)

	return items
}

// Merge flattens sets into one. Entries are trimmed; blank entries and
// entries starting with "#" are dropped.
func Merge(sets ...Set) Set {
	merged := make(Set)

	for _, s := range sets {
		for item := range s {
			item = strings.TrimSpace(item)
			if item == "" || strings.HasPrefix(item, commentPrefix) {
				continue
			}

			merged.Add(item)
		}
	}

	return merged
}

// FilterBundled returns the entries of s that do not start with any of the
// bundled library names.
func FilterBundled(s Set, bundled []string) Set {
	kept := make(Set, len(s))

	for item := range s {
		if slices.ContainsFunc(bundled, func(prefix string) bool {
			return strings.HasPrefix(item, prefix)
		}) {
			continue
		}

		kept.Add(item)
	}

	return kept
}
