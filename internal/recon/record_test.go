package recon

import (
	"testing"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

func addChild(t *testing.T, tr *tree.Tree, parent *tree.Node, name string, dist float64) *tree.Node {
	t.Helper()
	n, err := tr.NewNode(name)
	if err != nil {
		t.Fatalf("new node %q: %v", name, err)
	}
	n.Dist = dist
	tr.AddChild(parent, n)
	return n
}

// testSpeciesTree builds ((A:1,B:1)X:1,C:2)R with a unit pre-root
// branch.
func testSpeciesTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	r, err := tr.MakeRoot("R")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	r.Dist = 1
	x := addChild(t, tr, r, "X", 1)
	addChild(t, tr, x, "A", 1)
	addChild(t, tr, x, "B", 1)
	addChild(t, tr, r, "C", 2)
	return tr
}

// testCoalTree builds ((A_1:1,B_1:1)g1:1,C_1:2)gr.
func testCoalTree(t *testing.T) *tree.Tree {
	t.Helper()
	tr := tree.New()
	r, err := tr.MakeRoot("gr")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	g1 := addChild(t, tr, r, "g1", 1)
	addChild(t, tr, g1, "A_1", 1)
	addChild(t, tr, g1, "B_1", 1)
	addChild(t, tr, r, "C_1", 2)
	return tr
}

// congruentRecon builds the identity three-tree reconciliation of the
// coalescent tree through a same-topology locus tree.
func congruentRecon(t *testing.T, coalTree, stree *tree.Tree) *Recon {
	t.Helper()
	ltree := coalTree.Copy()
	locusRecon, err := phylo.Reconcile(ltree, stree, phylo.DefaultGene2Species)
	if err != nil {
		t.Fatalf("locus reconcile: %v", err)
	}
	locusEvents := phylo.LabelEvents(ltree, locusRecon)
	coalRecon, err := phylo.Reconcile(coalTree, ltree, phylo.SelfMap)
	if err != nil {
		t.Fatalf("coal reconcile: %v", err)
	}
	return NewRecon(coalRecon, ltree, locusRecon, locusEvents, nil)
}

func TestReconCopyOwnsMaps(t *testing.T) {
	stree := testSpeciesTree(t)
	coalTree := testCoalTree(t)
	rec := congruentRecon(t, coalTree, stree)
	rec.Daughters[rec.LocusTree.Nodes["g1"]] = true

	cp := rec.Copy()
	if cp.LocusTree != rec.LocusTree {
		t.Fatal("copy must share the locus tree")
	}
	cp.CoalRecon[coalTree.Nodes["g1"]] = rec.LocusTree.Root
	if rec.CoalRecon[coalTree.Nodes["g1"]] == rec.LocusTree.Root {
		t.Fatal("mutating the copy's coal recon changed the original")
	}
	delete(cp.Daughters, rec.LocusTree.Nodes["g1"])
	if !rec.Daughters[rec.LocusTree.Nodes["g1"]] {
		t.Fatal("mutating the copy's daughters changed the original")
	}
	cp.LocusEvents[rec.LocusTree.Root] = phylo.EventDup
	if rec.LocusEvents[rec.LocusTree.Root] == phylo.EventDup {
		t.Fatal("mutating the copy's events changed the original")
	}
}

func TestReconDictSorted(t *testing.T) {
	stree := testSpeciesTree(t)
	coalTree := testCoalTree(t)
	rec := congruentRecon(t, coalTree, stree)
	rec.Daughters[rec.LocusTree.Nodes["g1"]] = true
	rec.Daughters[rec.LocusTree.Nodes["C_1"]] = true

	d := rec.Dict()
	for i := 1; i < len(d.CoalRecon); i++ {
		if d.CoalRecon[i-1][0] >= d.CoalRecon[i][0] {
			t.Fatalf("coal recon pairs not sorted: %v", d.CoalRecon)
		}
	}
	for i := 1; i < len(d.LocusEvents); i++ {
		if d.LocusEvents[i-1][0] >= d.LocusEvents[i][0] {
			t.Fatalf("event pairs not sorted: %v", d.LocusEvents)
		}
	}
	if len(d.Daughters) != 2 || d.Daughters[0] != "C_1" || d.Daughters[1] != "g1" {
		t.Fatalf("daughters not sorted: %v", d.Daughters)
	}
	if d.LocusTree == "" {
		t.Fatal("locus tree newick missing")
	}
	// Identity coalescent mapping.
	for _, p := range d.CoalRecon {
		if p[0] != p[1] {
			t.Fatalf("congruent coal recon should be the identity: %v", p)
		}
	}
}

func TestNewReconDefaultsDaughters(t *testing.T) {
	stree := testSpeciesTree(t)
	coalTree := testCoalTree(t)
	rec := congruentRecon(t, coalTree, stree)
	if rec.Daughters == nil {
		t.Fatal("daughters map must not be nil")
	}
	if len(rec.Daughters) != 0 {
		t.Fatalf("expected no daughters, got %d", len(rec.Daughters))
	}
}
