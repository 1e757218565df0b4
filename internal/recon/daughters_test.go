package recon

import (
	"testing"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

func TestEmptyDaughters(t *testing.T) {
	daughters, err := EmptyDaughters{}.Propose(nil, nil, nil, nil)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if daughters == nil || len(daughters) != 0 {
		t.Fatalf("expected an empty map, got %v", daughters)
	}
}

func TestCoalescedDaughtersPicksCoalescedChild(t *testing.T) {
	// Locus tree: a single duplication with two loci.
	ltree := tree.New()
	d, err := ltree.MakeRoot("d")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	l1 := addChild(t, ltree, d, "l1", 1)
	l2 := addChild(t, ltree, d, "l2", 1)
	levents := map[*tree.Node]string{d: phylo.EventDup, l1: phylo.EventGene, l2: phylo.EventGene}

	// Coalescent tree: the two copies in l1 coalesce within l1, so
	// only one lineage exits; l2 holds a single copy.
	ctree := tree.New()
	q, err := ctree.MakeRoot("q")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	p := addChild(t, ctree, q, "p", 1)
	x1 := addChild(t, ctree, p, "x1", 1)
	x2 := addChild(t, ctree, p, "x2", 1)
	x3 := addChild(t, ctree, q, "x3", 2)
	coalRecon := phylo.Recon{x1: l1, x2: l1, p: l1, x3: l2, q: d}

	daughters, err := CoalescedDaughters{}.Propose(ctree, coalRecon, ltree, levents)
	if err != nil {
		t.Fatalf("propose: %v", err)
	}
	if len(daughters) != 1 {
		t.Fatalf("daughter count: got %d, want 1", len(daughters))
	}
	if !daughters[l1] && !daughters[l2] {
		t.Fatalf("unexpected daughter set: %v", daughters)
	}
	// Both children fully coalesce here, so either is valid; with no
	// randomness the first child wins.
	if !daughters[l1] {
		t.Fatal("expected the first qualifying child")
	}
}

func TestCoalescedDaughtersNoFit(t *testing.T) {
	ltree := tree.New()
	d, err := ltree.MakeRoot("d")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	l1 := addChild(t, ltree, d, "l1", 1)
	l2 := addChild(t, ltree, d, "l2", 1)
	levents := map[*tree.Node]string{d: phylo.EventDup, l1: phylo.EventGene, l2: phylo.EventGene}

	// Two uncoalesced lineages exit each locus.
	ctree := tree.New()
	r, err := ctree.MakeRoot("r")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	p := addChild(t, ctree, r, "p", 1)
	x1 := addChild(t, ctree, p, "x1", 1)
	y1 := addChild(t, ctree, p, "y1", 1)
	q := addChild(t, ctree, r, "q", 1)
	x2 := addChild(t, ctree, q, "x2", 1)
	y2 := addChild(t, ctree, q, "y2", 1)
	coalRecon := phylo.Recon{x1: l1, x2: l1, y1: l2, y2: l2, p: d, q: d, r: d}

	if _, err := (CoalescedDaughters{}).Propose(ctree, coalRecon, ltree, levents); err == nil {
		t.Fatal("expected error when no child fully coalesces")
	}
}
