package coal

import (
	"math"

	"github.com/wutron/dlcoal/internal/tree"
)

// CountsTable holds, per node of the bounded subtree, the probability
// distribution over lineage counts at the bottom (Start) and top
// (Top) of the node's branch. Index i is the probability of exactly i
// lineages.
type CountsTable map[*tree.Node]struct {
	Start []float64
	Top   []float64
}

// CalcProbCountsTable runs the lineage-count dynamic program over the
// subtree of htree rooted at sroot whose leaves are the given set.
// geneCounts gives the number of gene lineages at each subtree leaf
// (keyed by node name); T is the absolute time bounding the top of
// sroot's branch; stimes are node ages in htree.
func CalcProbCountsTable(geneCounts map[string]int, T float64, htree *tree.Tree, popsizes map[string]float64, sroot *tree.Node, sleaves map[*tree.Node]bool, stimes map[*tree.Node]float64) CountsTable {
	table := make(CountsTable)

	var walk func(node *tree.Node)
	walk = func(node *tree.Node) {
		var start []float64
		if sleaves[node] {
			m := geneCounts[node.Name]
			start = make([]float64, m+1)
			start[m] = 1
		} else {
			for _, c := range node.Children {
				walk(c)
			}
			// lineages entering the branch: sum over children tops
			start = []float64{1} // zero lineages with prob 1, convolved below
			for _, c := range node.Children {
				top := table[c].Top
				conv := make([]float64, len(start)+len(top)-1)
				for i, p := range start {
					for j, q := range top {
						conv[i+j] += p * q
					}
				}
				start = conv
			}
		}

		var span float64
		if node == sroot {
			span = T - stimes[node]
		} else {
			span = stimes[node.Parent] - stimes[node]
		}
		top := make([]float64, len(start))
		n := popsizes[node.Name]
		for j := 1; j < len(start); j++ {
			for i := j; i < len(start); i++ {
				if start[i] > 0 {
					top[j] += start[i] * ProbCoalCounts(i, j, span, n)
				}
			}
		}
		entry := table[node]
		entry.Start = start
		entry.Top = top
		table[node] = entry
	}
	walk(sroot)
	return table
}

// CdfMrcaBoundedMulticoal returns the log probability that the gene
// lineages of the bounded subtree fully coalesce to a single lineage
// by time T. A zero probability yields -Inf, the impossible sentinel.
func CdfMrcaBoundedMulticoal(geneCounts map[string]int, T float64, htree *tree.Tree, popsizes map[string]float64, sroot *tree.Node, sleaves map[*tree.Node]bool, stimes map[*tree.Node]float64) float64 {
	if sroot == nil {
		return math.Inf(-1)
	}
	table := CalcProbCountsTable(geneCounts, T, htree, popsizes, sroot, sleaves, stimes)
	top := table[sroot].Top
	if len(top) < 2 {
		// a single lineage (or none) is trivially coalesced
		return 0
	}
	return SafeLog(top[1])
}
