package coal

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9*(1+math.Abs(a)+math.Abs(b))
}

func TestSafeLog(t *testing.T) {
	if got := SafeLog(1); got != 0 {
		t.Fatalf("log 1: got %g, want 0", got)
	}
	if got := SafeLog(0); !math.IsInf(got, -1) {
		t.Fatalf("log 0: got %g, want -Inf", got)
	}
	if got := SafeLog(-3); !math.IsInf(got, -1) {
		t.Fatalf("log of negative: got %g, want -Inf", got)
	}
}

func TestProbCoalCountsPair(t *testing.T) {
	// Two lineages coalesce to one with probability 1 - exp(-t/n).
	for _, tc := range []struct{ t, n float64 }{
		{0.5, 1}, {1, 1}, {2, 0.5}, {0.1, 10},
	} {
		want := 1 - math.Exp(-tc.t/tc.n)
		if got := ProbCoalCounts(2, 1, tc.t, tc.n); !almostEqual(got, want) {
			t.Fatalf("P(2->1, t=%g, n=%g): got %g, want %g", tc.t, tc.n, got, want)
		}
		stay := math.Exp(-tc.t / tc.n)
		if got := ProbCoalCounts(2, 2, tc.t, tc.n); !almostEqual(got, stay) {
			t.Fatalf("P(2->2, t=%g, n=%g): got %g, want %g", tc.t, tc.n, got, stay)
		}
	}
}

func TestProbCoalCountsDistribution(t *testing.T) {
	// For fixed a, the counts at the top of the branch are a
	// probability distribution over b.
	for _, a := range []int{2, 3, 5, 8} {
		total := 0.0
		for b := 1; b <= a; b++ {
			p := ProbCoalCounts(a, b, 0.7, 1.3)
			if p < 0 || p > 1 {
				t.Fatalf("P(%d->%d) out of range: %g", a, b, p)
			}
			total += p
		}
		if !almostEqual(total, 1) {
			t.Fatalf("distribution for a=%d sums to %g", a, total)
		}
	}
}

func TestProbCoalCountsDegenerate(t *testing.T) {
	if got := ProbCoalCounts(3, 4, 1, 1); got != 0 {
		t.Fatalf("a<b: got %g, want 0", got)
	}
	if got := ProbCoalCounts(3, 0, 1, 1); got != 0 {
		t.Fatalf("b<1: got %g, want 0", got)
	}
	if got := ProbCoalCounts(3, 3, 0, 1); got != 1 {
		t.Fatalf("t=0 identity: got %g, want 1", got)
	}
	if got := ProbCoalCounts(3, 2, 0, 1); got != 0 {
		t.Fatalf("t=0 off-diagonal: got %g, want 0", got)
	}
	if got := ProbCoalCounts(1, 1, 5, 1); got != 1 {
		t.Fatalf("single lineage: got %g, want 1", got)
	}
}

func TestNumLabeledHistories(t *testing.T) {
	cases := []struct {
		a, b int
		want float64
	}{
		{2, 1, 1},
		{3, 1, 3},
		{4, 1, 18},
		{4, 2, 18},
		{5, 5, 1},
	}
	for _, tc := range cases {
		if got := NumLabeledHistories(tc.a, tc.b); !almostEqual(got, tc.want) {
			t.Fatalf("histories(%d,%d): got %g, want %g", tc.a, tc.b, got, tc.want)
		}
	}
}
