package recon

import (
	"fmt"
	"math/rand"

	"github.com/wutron/dlcoal/internal/coal"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// DaughterPolicy selects the daughter branch of each duplication in a
// proposed locus tree.
type DaughterPolicy interface {
	Name() string
	Propose(coalTree *tree.Tree, coalRecon phylo.Recon, locusTree *tree.Tree, locusEvents map[*tree.Node]string) (map[*tree.Node]bool, error)
}

// EmptyDaughters proposes no daughter constraints. This leaves the
// coalescent likelihood free of bounded-coalescence terms.
type EmptyDaughters struct{}

func (EmptyDaughters) Name() string { return "empty" }

func (EmptyDaughters) Propose(*tree.Tree, phylo.Recon, *tree.Tree, map[*tree.Node]string) (map[*tree.Node]bool, error) {
	return map[*tree.Node]bool{}, nil
}

// CoalescedDaughters marks, under each duplication, a child branch
// through which exactly one coalescent lineage exits. Such a branch is
// consistent with the full coalescence the daughter constraint
// demands. When both children qualify one is chosen at random.
type CoalescedDaughters struct {
	Rand *rand.Rand
}

func (CoalescedDaughters) Name() string { return "coalesced" }

func (p CoalescedDaughters) Propose(coalTree *tree.Tree, coalRecon phylo.Recon, locusTree *tree.Tree, locusEvents map[*tree.Node]string) (map[*tree.Node]bool, error) {
	lineages, err := coal.CountLineagesPerBranch(coalTree, coalRecon, locusTree)
	if err != nil {
		return nil, err
	}
	daughters := make(map[*tree.Node]bool)
	for node, event := range locusEvents {
		if event != phylo.EventDup {
			continue
		}
		var fit []*tree.Node
		for _, c := range node.Children {
			if lineages[c].Top == 1 {
				fit = append(fit, c)
			}
		}
		if len(fit) == 0 {
			return nil, fmt.Errorf("duplication %q has no fully coalescing child", node.Name)
		}
		pick := fit[0]
		if len(fit) > 1 && p.Rand != nil {
			pick = fit[p.Rand.Intn(len(fit))]
		}
		daughters[pick] = true
	}
	return daughters, nil
}
