package sim

import (
	"fmt"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// SampleBirthDeathGeneTree simulates a gene family inside the species
// tree under a birth-death process. Lost subtrees are pruned; total
// extinction yields a single-node tree whose root maps to the species
// root. Dists follow the species tree's time units.
func SampleBirthDeathGeneTree(stree *tree.Tree, birth, death float64, rng *xrand.Rand) (*tree.Tree, phylo.Recon, map[*tree.Node]string, error) {
	ltree := tree.New()
	root, err := ltree.MakeRoot(ltree.NewName())
	if err != nil {
		return nil, nil, nil, err
	}
	recon := phylo.Recon{root: stree.Root}
	events := map[*tree.Node]string{root: phylo.EventSpec}
	leafCounts := make(map[string]int)

	var evolve func(gnode *tree.Node, snode *tree.Node, remaining float64) error
	var split func(gnode *tree.Node, snode *tree.Node) error

	// evolve walks one gene lineage down a species branch.
	evolve = func(gnode, snode *tree.Node, remaining float64) error {
		wait := remaining + 1
		if birth+death > 0 {
			wait = distuv.Exponential{Rate: birth + death, Src: rng}.Rand()
		}
		if wait < remaining {
			gnode.Dist += wait
			if rng.Float64() < birth/(birth+death) {
				// duplication: both copies continue in this branch
				events[gnode] = phylo.EventDup
				recon[gnode] = snode
				for i := 0; i < 2; i++ {
					child, err := ltree.NewNode(ltree.NewName())
					if err != nil {
						return err
					}
					ltree.AddChild(gnode, child)
					if err := evolve(child, snode, remaining-wait); err != nil {
						return err
					}
				}
				return nil
			}
			events[gnode] = phylo.EventLoss
			recon[gnode] = snode
			return nil
		}

		gnode.Dist += remaining
		recon[gnode] = snode
		if snode.IsLeaf() {
			events[gnode] = phylo.EventGene
			leafCounts[snode.Name]++
			ltree.Rename(gnode.Name, fmt.Sprintf("%s_%d", snode.Name, leafCounts[snode.Name]))
			return nil
		}
		events[gnode] = phylo.EventSpec
		return split(gnode, snode)
	}

	// split starts one lineage into each child branch of snode.
	split = func(gnode, snode *tree.Node) error {
		for _, schild := range snode.Children {
			child, err := ltree.NewNode(ltree.NewName())
			if err != nil {
				return err
			}
			ltree.AddChild(gnode, child)
			if err := evolve(child, schild, schild.Dist); err != nil {
				return err
			}
		}
		return nil
	}

	if stree.Root.IsLeaf() {
		events[root] = phylo.EventGene
		leafCounts[stree.Root.Name]++
		ltree.Rename(root.Name, fmt.Sprintf("%s_%d", stree.Root.Name, leafCounts[stree.Root.Name]))
	} else if err := split(root, stree.Root); err != nil {
		return nil, nil, nil, err
	}

	pruneLosses(ltree, recon, events)
	return ltree, recon, events, nil
}

// pruneLosses removes lost subtrees and splices the resulting single
// children, keeping the root even when everything is extinct.
func pruneLosses(ltree *tree.Tree, recon phylo.Recon, events map[*tree.Node]string) {
	// A node is doomed when every leaf below it is a loss.
	doomed := make(map[*tree.Node]bool)
	for _, node := range ltree.Postorder() {
		if node.IsLeaf() {
			doomed[node] = events[node] == phylo.EventLoss
			continue
		}
		all := true
		for _, c := range node.Children {
			if !doomed[c] {
				all = false
			}
		}
		doomed[node] = all
	}

	if doomed[ltree.Root] {
		for _, node := range ltree.Postorder() {
			if node != ltree.Root {
				ltree.Remove(node)
				delete(recon, node)
				delete(events, node)
			}
		}
		ltree.Root.Children = nil
		ltree.Root.Dist = 0
		events[ltree.Root] = phylo.EventGene
		return
	}

	for _, node := range ltree.Postorder() {
		if doomed[node] {
			ltree.Remove(node)
			delete(recon, node)
			delete(events, node)
		}
	}
	for _, removed := range ltree.RemoveSingleChildren() {
		delete(recon, removed)
		delete(events, removed)
	}
}
