// Package streams provides multi-way merging of pre-sorted sequences.
package streams

// MergeSorted merges N pre-sorted streams into one sequence ordered by cmp.
// Each input stream must already be sorted consistently with cmp; the merge
// never re-sorts. The merge is stable with respect to stream order: on ties
// the element from the earlier stream wins.
//
// Empty streams are skipped and an empty outer slice yields an empty result.
func MergeSorted[T any](sorted [][]T, cmp func(a, b T) int) []T {
	var merged []T
	for _, stream := range sorted {
		merged = mergePair(merged, stream, cmp)
	}
	return merged
}

// mergePair two-pointer-merges b into a.
func mergePair[T any](a, b []T, cmp func(x, y T) int) []T {
	if len(b) == 0 {
		return a
	}
	if len(a) == 0 {
		out := make([]T, len(b))
		copy(out, b)
		return out
	}

	out := make([]T, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if cmp(a[i], b[j]) <= 0 {
			out = append(out, a[i])
			i++
		} else {
			out = append(out, b[j])
			j++
		}
	}
	out = append(out, a[i:]...)
	out = append(out, b[j:]...)
	return out
}
