package detector

import (
	"math"
	"sort"
)

// sortedCopy returns values sorted ascending without touching the input
func sortedCopy(values []float64) []float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted
}

// meanStdDev computes the population mean and standard deviation (denominator n).
// Thresholds downstream are calibrated against population statistics.
func meanStdDev(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}

	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	var sumSqDiff float64
	for _, v := range values {
		sumSqDiff += (v - mean) * (v - mean)
	}

	return mean, math.Sqrt(sumSqDiff / float64(len(values)))
}

// median of an already sorted slice
func median(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}

// quartiles splits a sorted slice in half and takes the median of each half.
// The lower half is the first floor(n/2) values, the upper half starts at ceil(n/2).
func quartiles(sorted []float64) (q1, q3 float64) {
	n := len(sorted)
	lower := sorted[:n/2]
	upper := sorted[(n+1)/2:]
	return median(lower), median(upper)
}

// round2 rounds to two decimal places
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
