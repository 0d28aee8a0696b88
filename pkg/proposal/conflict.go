package proposal

import (
	"slices"
)

// Range is a half-open byte range [Start, End) in a document.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int {
	return r.End - r.Start
}

// Overlaps reports whether the two ranges share at least one index. Empty
// ranges cover no index and never overlap.
func (r Range) Overlaps(o Range) bool {
	if r.Len() <= 0 || o.Len() <= 0 {
		return false
	}
	return r.Start < o.End && o.Start < r.End
}

// HasOverlap reports whether any two ranges intersect.
func HasOverlap(ranges []Range) bool {
	sorted := slices.Clone(ranges)
	slices.SortFunc(sorted, func(a, b Range) int { return a.Start - b.Start })

	maxEnd := -1
	for _, r := range sorted {
		if r.Len() <= 0 {
			continue
		}
		if r.Start < maxEnd {
			return true
		}
		maxEnd = max(maxEnd, r.End)
	}
	return false
}

// RangeSet accumulates accepted ranges in discovery order.
type RangeSet struct {
	accepted []Range
}

// Accept adds r unless it intersects a range accepted earlier. It reports
// whether r was accepted.
func (s *RangeSet) Accept(r Range) bool {
	for _, a := range s.accepted {
		if a.Overlaps(r) {
			return false
		}
	}
	s.accepted = append(s.accepted, r)
	return true
}

func (s *RangeSet) Ranges() []Range {
	return slices.Clone(s.accepted)
}

// AssignNonOverlapping walks ranges in order and flags each one that
// conflicts with the ranges accepted before it.
func AssignNonOverlapping(ranges []Range) []bool {
	var set RangeSet
	conflicts := make([]bool, len(ranges))
	for i, r := range ranges {
		conflicts[i] = !set.Accept(r)
	}
	return conflicts
}
