package summary

import (
	"math"
	"testing"

	"github.com/piki9312/evalgate/internal/domain"
)

func TestNearestRank(t *testing.T) {
	tests := []struct {
		name   string
		sorted []float64
		p      float64
		want   float64
	}{
		{"empty", nil, 0.95, 0},
		{"single", []float64{42}, 0.95, 42},
		{"p50 odd", []float64{1, 2, 3}, 0.50, 2},
		{"p50 even takes lower", []float64{1, 2, 3, 4}, 0.50, 2},
		{"p95 of 20", seq(20), 0.95, 19},
		{"p95 of 2", []float64{100, 200}, 0.95, 200},
		{"p100", []float64{1, 2, 3}, 1.0, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nearestRank(tt.sorted, tt.p)
			if got != tt.want {
				t.Errorf("nearestRank(%v, %v) = %v, want %v", tt.sorted, tt.p, got, tt.want)
			}
		})
	}
}

func seq(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestCoefficientOfVariation(t *testing.T) {
	// Identical samples: stddev 0, CV 0.
	if cv := coefficientOfVariation([]float64{100, 100, 100}); cv != 0 {
		t.Errorf("expected CV 0 for constant latencies, got %v", cv)
	}

	// Zero mean guards the division.
	if cv := coefficientOfVariation([]float64{0, 0}); cv != 0 {
		t.Errorf("expected CV 0 for zero mean, got %v", cv)
	}

	// Sample stddev of [100, 200] is ~70.71, mean 150.
	cv := coefficientOfVariation([]float64{100, 200})
	want := math.Sqrt(5000) / 150
	if math.Abs(cv-want) > 1e-9 {
		t.Errorf("expected CV %v, got %v", want, cv)
	}

	// Fewer than 2 samples yields 0.
	if cv := coefficientOfVariation([]float64{50}); cv != 0 {
		t.Errorf("expected CV 0 for single sample, got %v", cv)
	}
}

func TestDominantFailureType_TieBreaksAlphabetically(t *testing.T) {
	counts := map[domain.FailureType]int{
		domain.FailureTimeout: 2,
		domain.FailureBadJSON: 2,
	}

	got := dominantFailureType(counts)
	if got == nil || *got != domain.FailureBadJSON {
		t.Errorf("expected bad_json (alphabetical tie-break), got %v", got)
	}
}

func TestDominantFailureType_Empty(t *testing.T) {
	if got := dominantFailureType(map[domain.FailureType]int{}); got != nil {
		t.Errorf("expected nil for no failures, got %v", got)
	}
}

func TestPassRate_ZeroAttempts(t *testing.T) {
	if got := passRate(0, 0); got != 0 {
		t.Errorf("expected 0 for 0 attempts, got %v", got)
	}
}
