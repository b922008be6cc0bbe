package tasks

// Range is a half-open span [Start, End) of entry indices.
type Range struct {
	Start int
	End   int
}

// Len returns the number of entries in r.
func (r Range) Len() int {
	return r.End - r.Start
}

// Partition splits n entries into contiguous ranges, one per worker.
//
// The worker count is clamped to [1, n]. Every range but the last holds n/k entries
// and the last absorbs the remainder, so Partition(10, 3) yields sizes 3, 3, 4.
func Partition(n, workers int) []Range {
	if n <= 0 {
		return nil
	}

	k := max(workers, 1)
	k = min(k, n)
	size := n / k

	ranges := make([]Range, k)
	for i := range k {
		ranges[i] = Range{Start: i * size, End: (i + 1) * size}
	}
	ranges[k-1].End = n

	return ranges
}
