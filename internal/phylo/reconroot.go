package phylo

import (
	"github.com/wutron/dlcoal/internal/tree"
)

// ReconRoot re-roots gtree in place on the edge that minimizes the
// duplication-plus-loss parsimony cost against stree. Ties keep the
// first candidate in postorder.
func ReconRoot(gtree, stree *tree.Tree, g2s Gene2Species) error {
	if gtree.Root == nil || len(gtree.Nodes) <= 2 {
		return nil
	}

	bestName := ""
	bestCost := -1
	for _, node := range gtree.Postorder() {
		if node.Parent == nil {
			continue
		}
		trial, mapping := gtree.CopyWithMap()
		if err := trial.Reroot(mapping[node]); err != nil {
			return err
		}
		cost, err := DupLossCost(trial, stree, g2s)
		if err != nil {
			return err
		}
		if bestCost < 0 || cost < bestCost {
			bestCost = cost
			bestName = node.Name
		}
	}
	if bestName == "" {
		return nil
	}
	return gtree.Reroot(gtree.Nodes[bestName])
}
