package proposal

import "strings"

// Location is the result of a literal search for a fragment.
type Location struct {
	Fragment string
	Offsets  []int
}

// Count is the number of non-overlapping occurrences.
func (l Location) Count() int {
	return len(l.Offsets)
}

// Unique returns the range of the only occurrence.
func (l Location) Unique() (Range, bool) {
	if len(l.Offsets) != 1 {
		return Range{}, false
	}
	return Range{Start: l.Offsets[0], End: l.Offsets[0] + len(l.Fragment)}, true
}

// Locate finds every non-overlapping occurrence of fragment in document,
// scanning left to right and resuming after each match. Matching is literal.
// Offsets are byte offsets. An empty fragment never matches.
func Locate(document, fragment string) Location {
	loc := Location{Fragment: fragment}
	if fragment == "" {
		return loc
	}
	for pos := 0; pos <= len(document)-len(fragment); {
		i := strings.Index(document[pos:], fragment)
		if i < 0 {
			break
		}
		loc.Offsets = append(loc.Offsets, pos+i)
		pos += i + len(fragment)
	}
	return loc
}
