// Package coal implements multispecies-coalescent numerics: lineage
// count probabilities, history counts, reconciliation topology
// likelihoods, and the bounded-coalescent completion probability.
package coal

import (
	"math"
)

// SafeLog returns log(x), mapping zero or negative input to -Inf
// instead of NaN. Probabilities throughout the model are carried in
// log domain with -Inf as the "impossible" sentinel.
func SafeLog(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return math.Log(x)
}

// ProbCoalCounts returns the probability that a lineages coalesce to
// b lineages over time t in a population of size n (Tavare 1984).
func ProbCoalCounts(a, b int, t, n float64) float64 {
	if a < b || b < 1 {
		return 0
	}
	if t <= 0 || a == 1 {
		if a == b {
			return 1
		}
		return 0
	}
	af := float64(a)
	bf := float64(b)

	c := 1.0
	for y := 0.0; y < bf; y++ {
		c *= (bf + y) * (af - y) / (af + y)
	}
	s := math.Exp(-bf*(bf-1)*t/2/n) * c
	for k := b + 1; k <= a; k++ {
		kf := float64(k)
		k1 := kf - 1
		c *= (bf + k1) * (af - k1) / (af + k1) / (bf - kf)
		s += math.Exp(-kf*k1*t/2/n) * (2*kf - 1) / (k1 + bf) * c
	}
	for i := 2.0; i <= bf; i++ {
		s /= i
	}
	if s < 0 {
		// alternating series roundoff near zero
		return 0
	}
	return s
}

// NumLabeledHistories counts the orderings of coalescent events that
// take a lineages down to b lineages.
func NumLabeledHistories(a, b int) float64 {
	n := 1.0
	for k := b + 1; k <= a; k++ {
		n *= float64(k*(k-1)) / 2
	}
	return n
}
