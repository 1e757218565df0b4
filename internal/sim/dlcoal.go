package sim

import (
	"fmt"

	xrand "golang.org/x/exp/rand"

	"github.com/wutron/dlcoal/internal/coal"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/recon"
	"github.com/wutron/dlcoal/internal/tree"
)

const maxCoalRejects = 10000

// Config holds the generative parameters of one sampled gene family.
type Config struct {
	SpeciesTree *tree.Tree
	Popsizes    coal.PopsizeSpec
	Duprate     float64
	Lossrate    float64

	// Minsize rejects locus trees with fewer surviving leaves.
	Minsize int
	Rand    *xrand.Rand
}

// Sample draws one gene family: a locus tree from the birth-death
// process, daughters chosen uniformly per duplication, and a
// coalescent tree inside the locus tree, resampled until every
// daughter branch fully coalesces.
func Sample(cfg Config) (*tree.Tree, *recon.Recon, error) {
	if cfg.SpeciesTree == nil {
		return nil, nil, fmt.Errorf("sim: species tree is required")
	}
	rng := cfg.Rand
	if rng == nil {
		rng = xrand.New(xrand.NewSource(xrand.Uint64()))
	}
	popsizes, err := coal.InitPopsizes(cfg.SpeciesTree, cfg.Popsizes)
	if err != nil {
		return nil, nil, err
	}

	var ltree *tree.Tree
	var lrecon phylo.Recon
	var levents map[*tree.Node]string
	for {
		ltree, lrecon, levents, err = SampleBirthDeathGeneTree(cfg.SpeciesTree, cfg.Duprate, cfg.Lossrate, rng)
		if err != nil {
			return nil, nil, err
		}
		if len(ltree.Leaves()) >= cfg.Minsize {
			break
		}
	}

	if len(ltree.Nodes) <= 1 {
		// total extinction
		coalTree := tree.New()
		root, err := coalTree.MakeRoot(coalTree.NewName())
		if err != nil {
			return nil, nil, err
		}
		coalRecon := phylo.Recon{root: ltree.Root}
		rec := recon.NewRecon(coalRecon, ltree, lrecon, levents, nil)
		recon.RenameGenerated(coalTree, "n")
		recon.RenameGenerated(ltree, "n")
		return coalTree, rec, nil
	}

	// one daughter per duplication, chosen by a fair coin
	daughters := make(map[*tree.Node]bool)
	for node, event := range levents {
		if event == phylo.EventDup {
			daughters[node.Children[rng.Intn(len(node.Children))]] = true
		}
	}

	// popsizes keyed by locus node name
	lpopsizes := make(map[string]float64, len(ltree.Nodes))
	for _, node := range ltree.Preorder() {
		lpopsizes[node.Name] = popsizes[lrecon[node].Name]
	}
	leafCounts := make(map[string]int, len(ltree.Leaves()))
	for _, leaf := range ltree.Leaves() {
		leafCounts[leaf.Name] = 1
	}

	coalTree, coalRecon, err := sampleDaughterConsistent(ltree, lpopsizes, leafCounts, daughters, rng)
	if err != nil {
		return nil, nil, err
	}

	for _, removed := range coalTree.RemoveSingleChildren() {
		delete(coalRecon, removed)
	}

	rec := recon.NewRecon(coalRecon, ltree, lrecon, levents, daughters)
	recon.RenameGenerated(coalTree, "n")
	recon.RenameGenerated(ltree, "n")
	return coalTree, rec, nil
}

// sampleDaughterConsistent rejection-samples a multispecies coalescent
// tree until each daughter branch exits with a single lineage.
func sampleDaughterConsistent(ltree *tree.Tree, popsizes map[string]float64, leafCounts map[string]int, daughters map[*tree.Node]bool, rng *xrand.Rand) (*tree.Tree, phylo.Recon, error) {
	for try := 0; try < maxCoalRejects; try++ {
		coalTree, coalRecon, err := coal.SampleMulticoalTree(ltree, popsizes, leafCounts, rng)
		if err != nil {
			return nil, nil, err
		}
		if len(daughters) == 0 {
			return coalTree, coalRecon, nil
		}
		lineages, err := coal.CountLineagesPerBranch(coalTree, coalRecon, ltree)
		if err != nil {
			return nil, nil, err
		}
		ok := true
		for daughter := range daughters {
			if lineages[daughter].Top != 1 {
				ok = false
				break
			}
		}
		if ok {
			return coalTree, coalRecon, nil
		}
	}
	return nil, nil, fmt.Errorf("sim: no daughter-consistent coalescent tree after %d tries", maxCoalRejects)
}
