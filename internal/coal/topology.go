package coal

import (
	"math"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// ProbMulticoalReconTopology returns the log probability of the gene
// tree topology and reconciliation under the multispecies coalescent
// along the higher tree: the product over branches of the probability
// of the observed lineage counts, normalized by the number of labeled
// histories, corrected by the count of histories compatible with the
// observed topology within each branch.
func ProbMulticoalReconTopology(gtree *tree.Tree, recon phylo.Recon, htree *tree.Tree, popsizes map[string]float64, lineages map[*tree.Node]Lineages) float64 {
	if lineages == nil {
		var err error
		lineages, err = CountLineagesPerBranch(gtree, recon, htree)
		if err != nil {
			return math.Inf(-1)
		}
	}

	lnp := 0.0
	for _, hnode := range htree.Postorder() {
		counts := lineages[hnode]
		if counts.Bottom == 0 {
			continue
		}
		if hnode.Parent != nil {
			lnp += SafeLog(ProbCoalCounts(counts.Bottom, counts.Top, hnode.Dist, popsizes[hnode.Name]))
			lnp -= math.Log(NumLabeledHistories(counts.Bottom, counts.Top))
		} else {
			// root branch: unbounded time, all lineages coalesce
			lnp -= math.Log(NumLabeledHistories(counts.Bottom, 1))
		}
		if math.IsInf(lnp, -1) {
			return lnp
		}
	}

	// Correct for the fixed topology: within each connected gene
	// subtree confined to a single branch, only the orderings
	// compatible with the observed topology count.
	subtreeRoot := make(map[*tree.Node]*tree.Node, len(gtree.Nodes))
	var roots []*tree.Node
	for _, node := range gtree.Preorder() {
		if node.Parent != nil && recon[node] == recon[node.Parent] {
			subtreeRoot[node] = subtreeRoot[node.Parent]
		} else {
			subtreeRoot[node] = node
			roots = append(roots, node)
		}
	}
	for _, root := range roots {
		if root.IsLeaf() {
			continue
		}
		boundary := func(n *tree.Node) bool {
			return n != root && subtreeRoot[n] != root
		}
		lnp += LogNumTopologyHistories(root, boundary)
	}
	return lnp
}
