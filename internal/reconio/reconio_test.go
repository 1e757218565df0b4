package reconio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/recon"
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

func buildFileset(t *testing.T) (*tree.Tree, *tree.Tree, *recon.Recon) {
	t.Helper()
	stree := tree.New()
	r, err := stree.MakeRoot("R")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	x := addChild(t, stree, r, "X", 1)
	addChild(t, stree, x, "A", 1)
	addChild(t, stree, x, "B", 1)
	addChild(t, stree, r, "C", 2)

	coalTree := tree.New()
	gr, err := coalTree.MakeRoot("gr")
	if err != nil {
		t.Fatalf("make root: %v", err)
	}
	g1 := addChild(t, coalTree, gr, "g1", 1)
	addChild(t, coalTree, g1, "A_1", 1)
	addChild(t, coalTree, g1, "B_1", 1)
	addChild(t, coalTree, gr, "C_1", 2)

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
	rec := recon.NewRecon(coalRecon, ltree, locusRecon, locusEvents, nil)
	rec.Daughters[ltree.Nodes["g1"]] = true
	return stree, coalTree, rec
}

func TestWriteReadRoundTrip(t *testing.T) {
	stree, coalTree, rec := buildFileset(t)
	prefix := filepath.Join(t.TempDir(), "fam1")

	if err := Write(prefix, coalTree, rec); err != nil {
		t.Fatalf("write: %v", err)
	}
	for _, ext := range []string{CoalTreeExt, CoalReconExt, LocusTreeExt, LocusReconExt, DaughtersExt} {
		if _, err := os.Stat(prefix + ext); err != nil {
			t.Fatalf("missing fileset part %s: %v", ext, err)
		}
	}

	gotCoal, gotRec, err := Read(prefix, stree)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if phylo.HashTree(gotCoal) != phylo.HashTree(coalTree) {
		t.Fatal("coalescent topology changed in round trip")
	}
	if phylo.HashTree(gotRec.LocusTree) != phylo.HashTree(rec.LocusTree) {
		t.Fatal("locus topology changed in round trip")
	}

	// Mappings come back name-for-name.
	for node, mapped := range gotRec.CoalRecon {
		if node.Name != mapped.Name {
			t.Fatalf("coal recon of %q resolved to %q", node.Name, mapped.Name)
		}
	}
	want := map[string]string{"A_1": "A", "B_1": "B", "C_1": "C", "g1": "X", "gr": "R"}
	for node, snode := range gotRec.LocusRecon {
		if want[node.Name] != snode.Name {
			t.Fatalf("locus recon of %q resolved to %q", node.Name, snode.Name)
		}
	}
	for node, ev := range gotRec.LocusEvents {
		if node.IsLeaf() && ev != phylo.EventGene {
			t.Fatalf("leaf %q has event %q", node.Name, ev)
		}
		if !node.IsLeaf() && ev != phylo.EventSpec {
			t.Fatalf("internal %q has event %q", node.Name, ev)
		}
	}
	if len(gotRec.Daughters) != 1 || !gotRec.Daughters[gotRec.LocusTree.Nodes["g1"]] {
		t.Fatalf("daughters lost in round trip: %v", gotRec.Daughters)
	}
}

func TestReadRejectsUnknownNames(t *testing.T) {
	stree, coalTree, rec := buildFileset(t)
	prefix := filepath.Join(t.TempDir(), "fam1")
	if err := Write(prefix, coalTree, rec); err != nil {
		t.Fatalf("write: %v", err)
	}

	// Corrupt the daughters file with a name the locus tree lacks.
	if err := os.WriteFile(prefix+DaughtersExt, []byte("phantom\n"), 0o644); err != nil {
		t.Fatalf("corrupt daughters: %v", err)
	}
	if _, _, err := Read(prefix, stree); err == nil {
		t.Fatal("expected error for unknown daughter name")
	}
}

func TestReadMissingFile(t *testing.T) {
	stree, _, _ := buildFileset(t)
	if _, _, err := Read(filepath.Join(t.TempDir(), "nope"), stree); err == nil {
		t.Fatal("expected error for missing fileset")
	}
}
