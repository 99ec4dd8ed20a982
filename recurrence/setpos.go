package recurrence

// selectPositions keeps the elements of items at the given 1-based
// positions; negative positions count from the end. Positions outside the
// list select nothing. The relative order of items is preserved and each
// element is kept at most once. An empty position set keeps everything.
func selectPositions[T any](items []T, positions []int) []T {
	if len(positions) == 0 {
		return items
	}
	keep := make([]bool, len(items))
	for _, p := range positions {
		idx := p - 1
		if p < 0 {
			idx = len(items) + p
		}
		if idx >= 0 && idx < len(items) {
			keep[idx] = true
		}
	}
	out := make([]T, 0, len(positions))
	for i, it := range items {
		if keep[i] {
			out = append(out, it)
		}
	}
	return out
}
