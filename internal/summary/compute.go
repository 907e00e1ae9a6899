package summary

import (
	"math"
	"sort"

	"github.com/piki9312/evalgate/internal/domain"
)

// passRate calculates passes / attempts, 0 when attempts is 0.
func passRate(passes, attempts int) float64 {
	if attempts == 0 {
		return 0
	}
	return float64(passes) / float64(attempts)
}

// nearestRank returns the p-th quantile of sorted using the nearest-rank
// method. sorted must be pre-sorted ASC; p is a fraction (0.95 = p95).
func nearestRank(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	rank := int(math.Ceil(p * float64(n)))
	if rank < 1 {
		rank = 1
	}
	if rank > n {
		rank = n
	}
	return sorted[rank-1]
}

// median returns the 50th nearest-rank quantile of an unsorted slice.
func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return nearestRank(sorted, 0.50)
}

// mean calculates the arithmetic mean.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev calculates sample standard deviation (n-1 denominator).
func stddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// coefficientOfVariation returns stddev/mean, 0 when the mean is 0.
func coefficientOfVariation(values []float64) float64 {
	m := mean(values)
	if m == 0 {
		return 0
	}
	return stddev(values, m) / m
}

// dominantFailureType returns the mode of the non-nil failure types,
// breaking ties alphabetically. Returns nil when there are none.
func dominantFailureType(counts map[domain.FailureType]int) *domain.FailureType {
	var best *domain.FailureType
	bestCount := 0

	types := make([]domain.FailureType, 0, len(counts))
	for ft := range counts {
		types = append(types, ft)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	for _, ft := range types {
		if counts[ft] > bestCount {
			ft := ft
			best = &ft
			bestCount = counts[ft]
		}
	}
	return best
}
