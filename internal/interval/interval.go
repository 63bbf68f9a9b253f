package interval

import (
	"errors"
	"sort"
)

// Range represents a half-open time interval [Start, End) measured in Unix
// milliseconds. Minute-of-day constraints reuse the same shape with values in
// [0, 1440].
type Range struct {
	Start int64
	End   int64
}

// ErrInvalidRange indicates a range whose start is not strictly before its end.
var ErrInvalidRange = errors.New("interval: range start must be before end")

// IsValid reports whether the range satisfies Start < End.
func (r Range) IsValid() bool {
	return r.Start < r.End
}

// Duration returns the length of the range in milliseconds.
func (r Range) Duration() int64 {
	return r.End - r.Start
}

// Contains reports whether the instant t lies inside the half-open range.
func (r Range) Contains(t int64) bool {
	return t >= r.Start && t < r.End
}

// Overlaps reports whether two ranges share at least one instant.
func (r Range) Overlaps(other Range) bool {
	return r.Start < other.End && other.Start < r.End
}

// MergeAll sorts the supplied ranges by start and coalesces every overlapping
// or adjacent pair. The result is sorted, pairwise disjoint and non-adjacent,
// and independent of the input order. The input slice is not modified.
func MergeAll(ranges []Range) []Range {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]Range, len(ranges))
	copy(sorted, ranges)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := make([]Range, 0, len(sorted))
	merged = append(merged, sorted[0])
	for _, current := range sorted[1:] {
		last := &merged[len(merged)-1]
		// Adjacency counts as a merge: [100,200) + [200,300) -> [100,300).
		if current.Start <= last.End {
			if current.End > last.End {
				last.End = current.End
			}
			continue
		}
		merged = append(merged, current)
	}

	return merged
}

// AddAndMerge inserts newRange into the existing set and returns the merged
// result. The existing slice is not modified.
func AddAndMerge(existing []Range, newRange Range) []Range {
	combined := make([]Range, 0, len(existing)+1)
	combined = append(combined, existing...)
	combined = append(combined, newRange)
	return MergeAll(combined)
}

// Subtract removes deleteRange from every range in the existing set, splitting
// ranges that fully contain it and trimming partial overlaps. Ranges untouched
// by deleteRange are preserved as-is, in input order.
func Subtract(existing []Range, deleteRange Range) []Range {
	if len(existing) == 0 {
		return nil
	}

	result := make([]Range, 0, len(existing)+1)
	for _, r := range existing {
		switch {
		case deleteRange.End <= r.Start || deleteRange.Start >= r.End:
			// No overlap.
			result = append(result, r)
		case deleteRange.Start <= r.Start && deleteRange.End >= r.End:
			// Fully covered; drop.
		case deleteRange.Start > r.Start && deleteRange.End < r.End:
			// Strictly inside; split.
			result = append(result, Range{Start: r.Start, End: deleteRange.Start})
			result = append(result, Range{Start: deleteRange.End, End: r.End})
		case deleteRange.Start <= r.Start:
			// Head overlap.
			result = append(result, Range{Start: deleteRange.End, End: r.End})
		default:
			// Tail overlap.
			result = append(result, Range{Start: r.Start, End: deleteRange.Start})
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}

// CoveredMillis returns the total duration covered by the set after merging.
func CoveredMillis(ranges []Range) int64 {
	var total int64
	for _, r := range MergeAll(ranges) {
		total += r.Duration()
	}
	return total
}
