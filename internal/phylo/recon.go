// Package phylo implements reconciliation primitives between gene
// trees and species trees: LCA mappings, event labeling, loss
// counting, rerooting, topology hashing and search moves.
package phylo

import (
	"fmt"
	"strings"

	"github.com/wutron/dlcoal/internal/tree"
)

// Event labels for gene tree nodes.
const (
	EventGene = "gene"
	EventSpec = "spec"
	EventDup  = "dup"
	EventLoss = "loss"
)

// Gene2Species maps a gene (leaf) name to a species name.
type Gene2Species func(gene string) string

// SelfMap is the identity assignment, used when reconciling a
// coalescent tree against a locus tree whose leaves share names.
func SelfMap(gene string) string { return gene }

// DefaultGene2Species strips a trailing "_<copy>" suffix, the naming
// convention of simulated gene trees ("speciesA_1" -> "speciesA").
func DefaultGene2Species(gene string) string {
	if i := strings.LastIndex(gene, "_"); i > 0 {
		return gene[:i]
	}
	return gene
}

// Recon is a reconciliation map from nodes of a lower tree to nodes
// of a higher tree.
type Recon map[*tree.Node]*tree.Node

// Copy returns a shallow copy of the map (nodes are shared).
func (r Recon) Copy() Recon {
	c := make(Recon, len(r))
	for k, v := range r {
		c[k] = v
	}
	return c
}

// Depths indexes each node by its distance (in edges) from the root.
func Depths(t *tree.Tree) map[*tree.Node]int {
	depths := make(map[*tree.Node]int, len(t.Nodes))
	for _, node := range t.Preorder() {
		if node.Parent != nil {
			depths[node] = depths[node.Parent] + 1
		}
	}
	return depths
}

// LCA returns the least common ancestor of a and b given node depths.
func LCA(a, b *tree.Node, depths map[*tree.Node]int) *tree.Node {
	for a != b {
		if depths[a] < depths[b] {
			b = b.Parent
		} else {
			a = a.Parent
		}
	}
	return a
}

// IsAncestorOrEqual reports whether anc lies on the root path of node
// (inclusive).
func IsAncestorOrEqual(anc, node *tree.Node) bool {
	for n := node; n != nil; n = n.Parent {
		if n == anc {
			return true
		}
	}
	return false
}

// Reconcile computes the least-common-ancestor reconciliation of
// gtree onto stree under the given species assignment.
func Reconcile(gtree, stree *tree.Tree, g2s Gene2Species) (Recon, error) {
	depths := Depths(stree)
	recon := make(Recon, len(gtree.Nodes))
	for _, node := range gtree.Postorder() {
		if node.IsLeaf() {
			sname := g2s(node.Name)
			snode, ok := stree.Nodes[sname]
			if !ok {
				return nil, fmt.Errorf("gene %q maps to unknown species %q", node.Name, sname)
			}
			recon[node] = snode
			continue
		}
		mapped := recon[node.Children[0]]
		for _, c := range node.Children[1:] {
			mapped = LCA(mapped, recon[c], depths)
		}
		recon[node] = mapped
	}
	return recon, nil
}

// LabelEvents labels each gene tree node as a leaf, speciation, or
// duplication by comparing its mapping against its children's.
func LabelEvents(gtree *tree.Tree, recon Recon) map[*tree.Node]string {
	events := make(map[*tree.Node]string, len(gtree.Nodes))
	for _, node := range gtree.Postorder() {
		if node.IsLeaf() {
			events[node] = EventGene
			continue
		}
		events[node] = EventSpec
		for _, c := range node.Children {
			if recon[c] == recon[node] {
				events[node] = EventDup
				break
			}
		}
	}
	return events
}

// CountDup counts duplication events.
func CountDup(events map[*tree.Node]string) int {
	dups := 0
	for _, ev := range events {
		if ev == EventDup {
			dups++
		}
	}
	return dups
}

// CountLoss counts implied losses of a reconciliation over a binary
// species tree: every species branch skipped by a gene branch leaves
// one unobserved sibling lineage.
func CountLoss(gtree, stree *tree.Tree, recon Recon) int {
	events := LabelEvents(gtree, recon)
	depths := Depths(stree)
	losses := 0
	for _, node := range gtree.Postorder() {
		if node.Parent == nil {
			continue
		}
		skipped := depths[recon[node]] - depths[recon[node.Parent]]
		if events[node.Parent] == EventSpec {
			skipped--
		}
		if skipped > 0 {
			losses += skipped
		}
	}
	return losses
}

// DupLossCost is the parsimony score used for rerooting.
func DupLossCost(gtree, stree *tree.Tree, g2s Gene2Species) (int, error) {
	recon, err := Reconcile(gtree, stree, g2s)
	if err != nil {
		return 0, err
	}
	events := LabelEvents(gtree, recon)
	return CountDup(events) + CountLoss(gtree, stree, recon), nil
}
