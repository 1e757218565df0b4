package phylo

import (
	"math/rand"

	"github.com/wutron/dlcoal/internal/tree"
)

// TreeSearch proposes local rearrangements of a tree. Propose mutates
// the held tree in place and returns it; Revert undoes the last
// proposal. Reset clears any internal history.
type TreeSearch interface {
	Tree() *tree.Tree
	SetTree(t *tree.Tree)
	Propose() *tree.Tree
	Revert() *tree.Tree
	Reset()
}

// NNISearch performs nearest-neighbor-interchange moves: it picks a
// random internal edge and swaps a child of the lower node with its
// sibling.
type NNISearch struct {
	tree *tree.Tree
	rng  *rand.Rand

	// last swap, for revert
	node1, node2 *tree.Node
}

func NewNNISearch(t *tree.Tree, rng *rand.Rand) *NNISearch {
	return &NNISearch{tree: t, rng: rng}
}

func (s *NNISearch) Tree() *tree.Tree { return s.tree }

func (s *NNISearch) SetTree(t *tree.Tree) {
	s.tree = t
	s.node1, s.node2 = nil, nil
}

func (s *NNISearch) Reset() {
	s.node1, s.node2 = nil, nil
}

// Propose applies a random NNI move. Trees with no internal edge are
// returned unchanged.
func (s *NNISearch) Propose() *tree.Tree {
	s.node1, s.node2 = nil, nil

	var internal []*tree.Node
	for _, node := range s.tree.Postorder() {
		if node.Parent != nil && !node.IsLeaf() {
			internal = append(internal, node)
		}
	}
	if len(internal) == 0 {
		return s.tree
	}

	lower := internal[s.rng.Intn(len(internal))]
	upper := lower.Parent
	child := lower.Children[s.rng.Intn(len(lower.Children))]

	var siblings []*tree.Node
	for _, c := range upper.Children {
		if c != lower {
			siblings = append(siblings, c)
		}
	}
	if len(siblings) == 0 {
		return s.tree
	}
	sibling := siblings[s.rng.Intn(len(siblings))]

	swapNodes(child, sibling)
	s.node1, s.node2 = child, sibling
	return s.tree
}

// Revert undoes the last proposal, if any.
func (s *NNISearch) Revert() *tree.Tree {
	if s.node1 != nil {
		swapNodes(s.node1, s.node2)
		s.node1, s.node2 = nil, nil
	}
	return s.tree
}

// swapNodes exchanges the positions of two nodes, neither of which
// may be an ancestor of the other.
func swapNodes(a, b *tree.Node) {
	pa, pb := a.Parent, b.Parent
	for i, c := range pa.Children {
		if c == a {
			pa.Children[i] = b
		}
	}
	for i, c := range pb.Children {
		if c == b {
			pb.Children[i] = a
		}
	}
	a.Parent, b.Parent = pb, pa
}
