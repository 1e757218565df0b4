// Package duploss implements the gene duplication-loss model: birth-
// death count probabilities, the maxdoom-bounded topology prior, and
// the duplication-time sampler.
package duploss

import (
	"math"
)

const rateEps = 1e-12

func safeLog(x float64) float64 {
	if x <= 0 {
		return math.Inf(-1)
	}
	return math.Log(x)
}

// ProbBirthDeathCounts returns the probability that a single lineage
// leaves exactly k descendants after time t under a birth-death
// process with the given rates (Kendall 1948).
func ProbBirthDeathCounts(k int, t, birth, death float64) float64 {
	if k < 0 {
		return 0
	}
	if t <= 0 || (birth < rateEps && death < rateEps) {
		if k == 1 {
			return 1
		}
		return 0
	}

	var p0, ub float64
	if math.Abs(birth-death) < rateEps {
		// critical case: birth == death
		bt := birth * t
		p0 = bt / (1 + bt)
		ub = p0
	} else {
		r := birth - death
		e := math.Exp(-r * t)
		p0 = death * (1 - e) / (birth - death*e)
		ub = birth * (1 - e) / (birth - death*e)
	}
	if k == 0 {
		return p0
	}
	return (1 - p0) * (1 - ub) * math.Pow(ub, float64(k-1))
}
