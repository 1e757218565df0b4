package duploss

import (
	"errors"
	"fmt"
	"math"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// ErrPretimePremean reports a violated sampler contract: exactly one
// of pretime and premean must be supplied.
var ErrPretimePremean = errors.New("exactly one of pretime and premean must be set")

// TimeSampler draws complete timestamp assignments for a locus tree:
// speciation and leaf nodes take their species node's age; each
// duplication's age is drawn from the reconstructed birth-death
// waiting-time density, conditioned on the duplication falling inside
// its branch's span.
type TimeSampler struct {
	Duprate  float64
	Lossrate float64
	Pretime  float64 // fixed span above the species root, or 0
	Premean  float64 // mean of an exponential span above the species root, or 0

	rng *xrand.Rand
}

// NewTimeSampler validates the pretime/premean contract.
func NewTimeSampler(duprate, lossrate, pretime, premean float64, rng *xrand.Rand) (*TimeSampler, error) {
	if (pretime > 0) == (premean > 0) {
		return nil, ErrPretimePremean
	}
	return &TimeSampler{
		Duprate:  duprate,
		Lossrate: lossrate,
		Pretime:  pretime,
		Premean:  premean,
		rng:      rng,
	}, nil
}

// SampleTimes returns an age for every node of ltree.
func (s *TimeSampler) SampleTimes(ltree, stree *tree.Tree, lrecon phylo.Recon, levents map[*tree.Node]string) (map[*tree.Node]float64, error) {
	stimes, err := stree.Timestamps()
	if err != nil {
		return nil, err
	}
	times := make(map[*tree.Node]float64, len(ltree.Nodes))

	// Non-duplication nodes sit exactly at their species node's age.
	for _, node := range ltree.Preorder() {
		if levents[node] != phylo.EventDup {
			times[node] = stimes[lrecon[node]]
		}
	}

	var walkDup func(node *tree.Node, start float64) error
	walkDup = func(node *tree.Node, start float64) error {
		snode := lrecon[node]
		bottom := stimes[snode]
		span := start - bottom
		if span < 0 {
			return fmt.Errorf("duplication %q older than its branch", node.Name)
		}
		times[node] = start - s.sampleBirthWait(span)
		for _, c := range node.Children {
			if levents[c] == phylo.EventDup {
				childStart := times[node]
				if top := lrecon[c].Parent; top != nil && stimes[top] < childStart {
					childStart = stimes[top]
				}
				if err := walkDup(c, childStart); err != nil {
					return err
				}
			}
		}
		return nil
	}

	for _, node := range ltree.Preorder() {
		if levents[node] != phylo.EventDup {
			for _, c := range node.Children {
				if levents[c] == phylo.EventDup {
					start := times[node]
					if top := lrecon[c].Parent; top != nil && stimes[top] < start {
						start = stimes[top]
					}
					if err := walkDup(c, start); err != nil {
						return nil, err
					}
				}
			}
		}
	}

	// A duplication chain above the species root starts at the
	// pre-species time.
	if levents[ltree.Root] == phylo.EventDup {
		pre := s.Pretime
		if pre <= 0 {
			exp := distuv.Exponential{Rate: 1 / s.Premean, Src: s.rng}
			for pre <= 0 {
				pre = exp.Rand()
			}
		}
		start := stimes[lrecon[ltree.Root]] + pre
		if err := walkDup(ltree.Root, start); err != nil {
			return nil, err
		}
	}
	return times, nil
}

// sampleBirthWait draws the elapsed time to the first birth of a
// reconstructed birth-death process over a span T, conditioned on a
// birth occurring within the span. In the critical case the
// conditional density degenerates to uniform.
func (s *TimeSampler) sampleBirthWait(T float64) float64 {
	if T <= 0 {
		return 0
	}
	r := s.Duprate - s.Lossrate
	u := s.rng.Float64()
	if math.Abs(r) < rateEps {
		return u * T
	}
	return -math.Log(1-u*(1-math.Exp(-r*T))) / r
}
