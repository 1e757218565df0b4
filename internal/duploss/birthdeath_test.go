package duploss

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*(1+math.Abs(a)+math.Abs(b))
}

func TestProbBirthDeathCountsZeroRates(t *testing.T) {
	if got := ProbBirthDeathCounts(1, 5, 0, 0); got != 1 {
		t.Fatalf("P(1) with zero rates: got %g, want 1", got)
	}
	for _, k := range []int{0, 2, 7} {
		if got := ProbBirthDeathCounts(k, 5, 0, 0); got != 0 {
			t.Fatalf("P(%d) with zero rates: got %g, want 0", k, got)
		}
	}
}

func TestProbBirthDeathCountsZeroTime(t *testing.T) {
	if got := ProbBirthDeathCounts(1, 0, 2, 1); got != 1 {
		t.Fatalf("P(1) at t=0: got %g, want 1", got)
	}
	if got := ProbBirthDeathCounts(3, 0, 2, 1); got != 0 {
		t.Fatalf("P(3) at t=0: got %g, want 0", got)
	}
	if got := ProbBirthDeathCounts(-1, 1, 2, 1); got != 0 {
		t.Fatalf("negative count: got %g, want 0", got)
	}
}

func TestProbBirthDeathCountsCritical(t *testing.T) {
	// birth == death == 1 over t=1: p0 = 1/2 and the survivor counts
	// follow a geometric tail.
	if got := ProbBirthDeathCounts(0, 1, 1, 1); !almostEqual(got, 0.5) {
		t.Fatalf("P(0): got %g, want 0.5", got)
	}
	if got := ProbBirthDeathCounts(1, 1, 1, 1); !almostEqual(got, 0.25) {
		t.Fatalf("P(1): got %g, want 0.25", got)
	}
	if got := ProbBirthDeathCounts(2, 1, 1, 1); !almostEqual(got, 0.125) {
		t.Fatalf("P(2): got %g, want 0.125", got)
	}
}

func TestProbBirthDeathCountsDistribution(t *testing.T) {
	for _, tc := range []struct{ birth, death float64 }{
		{1, 0.5}, {0.5, 1}, {1, 1}, {2, 0},
	} {
		total := 0.0
		for k := 0; k <= 500; k++ {
			p := ProbBirthDeathCounts(k, 0.8, tc.birth, tc.death)
			if p < 0 {
				t.Fatalf("negative probability at k=%d (b=%g d=%g)", k, tc.birth, tc.death)
			}
			total += p
		}
		if math.Abs(total-1) > 1e-6 {
			t.Fatalf("counts for b=%g d=%g sum to %g", tc.birth, tc.death, total)
		}
	}
}
