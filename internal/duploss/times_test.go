package duploss

import (
	"errors"
	"math"
	"testing"

	xrand "golang.org/x/exp/rand"

	"github.com/wutron/dlcoal/internal/tree"
)

func TestNewTimeSamplerContract(t *testing.T) {
	rng := xrand.New(xrand.NewSource(1))
	if _, err := NewTimeSampler(1, 0.5, 1, 0, rng); err != nil {
		t.Fatalf("pretime only: %v", err)
	}
	if _, err := NewTimeSampler(1, 0.5, 0, 2, rng); err != nil {
		t.Fatalf("premean only: %v", err)
	}
	if _, err := NewTimeSampler(1, 0.5, 0, 0, rng); !errors.Is(err, ErrPretimePremean) {
		t.Fatalf("neither set: got %v, want ErrPretimePremean", err)
	}
	if _, err := NewTimeSampler(1, 0.5, 1, 2, rng); !errors.Is(err, ErrPretimePremean) {
		t.Fatalf("both set: got %v, want ErrPretimePremean", err)
	}
}

func TestSampleTimesCongruent(t *testing.T) {
	stree := testSpeciesTree(t)
	ltree := congruentLocusTree(t)
	recon, events := reconcileLocus(t, ltree, stree)

	sampler, err := NewTimeSampler(1, 0.5, 1, 0, xrand.New(xrand.NewSource(3)))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	times, err := sampler.SampleTimes(ltree, stree, recon, events)
	if err != nil {
		t.Fatalf("sample times: %v", err)
	}
	want := map[string]float64{"gr": 2, "g1": 1, "A_1": 0, "B_1": 0, "C_1": 0}
	for name, age := range want {
		if got := times[ltree.Nodes[name]]; math.Abs(got-age) > 1e-9 {
			t.Fatalf("age of %q: got %g, want %g", name, got, age)
		}
	}
}

func TestSampleTimesDuplication(t *testing.T) {
	stree := testSpeciesTree(t)
	ltree := duplicatedLocusTree(t)
	recon, events := reconcileLocus(t, ltree, stree)

	sampler, err := NewTimeSampler(1, 0.5, 1, 0, xrand.New(xrand.NewSource(11)))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	d := ltree.Nodes["d"]
	for i := 0; i < 50; i++ {
		times, err := sampler.SampleTimes(ltree, stree, recon, events)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		// The duplication lives in the branch above species A, between
		// the A tip and the speciation at X.
		if times[d] < 0 || times[d] > 1 {
			t.Fatalf("sample %d: duplication age %g outside branch", i, times[d])
		}
		if times[ltree.Nodes["gr"]] != 1 {
			t.Fatalf("sample %d: root age %g, want 1", i, times[ltree.Nodes["gr"]])
		}
	}
}

func TestSampleTimesRootDuplication(t *testing.T) {
	stree := testSpeciesTree(t)
	ltree := rootDupLocusTree(t)
	recon, events := reconcileLocus(t, ltree, stree)

	const pretime = 0.5
	sampler, err := NewTimeSampler(1, 0.5, pretime, 0, xrand.New(xrand.NewSource(19)))
	if err != nil {
		t.Fatalf("new sampler: %v", err)
	}
	root := ltree.Root
	rootSpeciesAge := 2.0
	for i := 0; i < 50; i++ {
		times, err := sampler.SampleTimes(ltree, stree, recon, events)
		if err != nil {
			t.Fatalf("sample %d: %v", i, err)
		}
		if times[root] < rootSpeciesAge || times[root] > rootSpeciesAge+pretime {
			t.Fatalf("sample %d: root duplication age %g outside pre-root span", i, times[root])
		}
	}
}

// rootDupLocusTree builds a tree whose root is a duplication mapped to
// the species root: two full species sets.
func rootDupLocusTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	r, err := tr.MakeRoot("top")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	for _, suffix := range []string{"1", "2"} {
		gr := addChild(t, tr, r, "gr"+suffix, 0.5)
		g1 := addChild(t, tr, gr, "g"+suffix, 1)
		addChild(t, tr, g1, "A_"+suffix, 1)
		addChild(t, tr, g1, "B_"+suffix, 1)
		addChild(t, tr, gr, "C_"+suffix, 2)
	}
	return tr
}
