package coal

import (
	"fmt"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// Lineages holds the lineage counts of one branch of the higher tree:
// Bottom at the recent end, Top at the ancient end after the branch's
// coalescent events.
type Lineages struct {
	Bottom int
	Top    int
}

// CountLineagesPerBranch counts, for each branch of the higher tree,
// how many gene lineages enter at the bottom and how many remain at
// the top. Every internal gene node mapped into a branch is one
// coalescent event there.
func CountLineagesPerBranch(gtree *tree.Tree, recon phylo.Recon, htree *tree.Tree) (map[*tree.Node]Lineages, error) {
	leaves := make(map[*tree.Node]int, len(htree.Nodes))
	events := make(map[*tree.Node]int, len(htree.Nodes))
	for _, node := range gtree.Postorder() {
		hnode, ok := recon[node]
		if !ok {
			return nil, fmt.Errorf("gene node %q missing from reconciliation", node.Name)
		}
		if node.IsLeaf() {
			leaves[hnode]++
		} else {
			events[hnode]++
		}
	}

	counts := make(map[*tree.Node]Lineages, len(htree.Nodes))
	for _, hnode := range htree.Postorder() {
		bottom := leaves[hnode]
		for _, c := range hnode.Children {
			bottom += counts[c].Top
		}
		top := bottom - events[hnode]
		if bottom > 0 && top < 1 {
			return nil, fmt.Errorf("branch %q coalesces %d lineages below 1", hnode.Name, bottom)
		}
		counts[hnode] = Lineages{Bottom: bottom, Top: top}
	}
	return counts, nil
}
