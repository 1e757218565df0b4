package tree

import (
	"math"
	"testing"
)

func TestNewickOutput(t *testing.T) {
	tr := newTestTree(t)
	got := tr.Newick()
	want := "((a:1,b:1)x:1,c:2)r:0;"
	if got != want {
		t.Fatalf("newick: got %q, want %q", got, want)
	}
}

func TestParseNewick(t *testing.T) {
	tr, err := ParseNewickString("((a:1,b:1)x:1,c:2)r;")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if tr.Root.Name != "r" {
		t.Fatalf("root name: got %q", tr.Root.Name)
	}
	times, err := tr.Timestamps()
	if err != nil {
		t.Fatalf("timestamps: %v", err)
	}
	if math.Abs(times[tr.Root]-2) > 1e-9 {
		t.Fatalf("root age: got %g, want 2", times[tr.Root])
	}
	if got := len(tr.Leaves()); got != 3 {
		t.Fatalf("leaf count: got %d, want 3", got)
	}
}

func TestParseNewickUnnamedInternal(t *testing.T) {
	tr, err := ParseNewickString("((a:1,b:1):1,c:2);")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if err := tr.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if got := len(tr.Nodes); got != 5 {
		t.Fatalf("node count: got %d, want 5", got)
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, ok := tr.Nodes[name]; !ok {
			t.Fatalf("leaf %q missing after parse", name)
		}
	}
}

func TestParseNewickRoundTrip(t *testing.T) {
	in := "((a:1,b:1)x:1,c:2)r:0;"
	tr, err := ParseNewickString(in)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	again, err := ParseNewickString(tr.Newick())
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again.Nodes) != len(tr.Nodes) {
		t.Fatalf("round trip changed node count: %d vs %d", len(again.Nodes), len(tr.Nodes))
	}
}
