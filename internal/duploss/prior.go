package duploss

import (
	"fmt"
	"math"

	"github.com/wutron/dlcoal/internal/coal"
	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// TopologyPrior is the duplication-loss prior over locus tree
// topologies and reconciliations. Doomed (fully extinct) lineage
// counts are truncated at Maxdoom. Pre-root duplications are modeled
// over the species root's branch length; a species tree with a zero
// root branch assigns such configurations probability zero.
type TopologyPrior struct {
	Maxdoom int
}

func (TopologyPrior) Name() string { return "topology_prior" }

// DoomTable returns, per species node, the log probability that a
// single gene lineage present at that speciation point leaves no
// extant descendants.
func DoomTable(stree *tree.Tree, birth, death float64, maxdoom int) map[*tree.Node]float64 {
	doom := make(map[*tree.Node]float64, len(stree.Nodes))
	for _, snode := range stree.Postorder() {
		if snode.IsLeaf() {
			doom[snode] = math.Inf(-1)
			continue
		}
		total := 0.0
		for _, child := range snode.Children {
			d := math.Exp(doom[child])
			p := 0.0
			for x := 0; x <= maxdoom; x++ {
				p += ProbBirthDeathCounts(x, child.Dist, birth, death) * math.Pow(d, float64(x))
			}
			total += safeLog(p)
		}
		doom[snode] = total
	}
	return doom
}

// LogPrior computes the log prior of the locus tree and its
// reconciliation. The locus tree is copied internally; implied
// speciation nodes are inserted on the copy so every locus branch
// lies within one species branch.
func (tp TopologyPrior) LogPrior(ltree, stree *tree.Tree, lrecon phylo.Recon, levents map[*tree.Node]string, birth, death float64, maxdoom int) (float64, error) {
	if maxdoom <= 0 {
		maxdoom = tp.Maxdoom
	}
	if maxdoom <= 0 {
		maxdoom = 20
	}
	if ltree.Root == nil {
		return 0, nil
	}

	lt, mapping := ltree.CopyWithMap()
	recon := make(phylo.Recon, len(lrecon))
	events := make(map[*tree.Node]string, len(levents))
	for old, snode := range lrecon {
		recon[mapping[old]] = snode
	}
	for old, ev := range levents {
		events[mapping[old]] = ev
	}
	if _, err := phylo.AddImpliedSpecNodes(lt, stree, recon, events); err != nil {
		return 0, err
	}

	doom := DoomTable(stree, birth, death, maxdoom)

	// Entering lineages: the locus root, plus every node whose parent
	// sits at a speciation point of a shallower species branch.
	var entering []*tree.Node
	for _, node := range lt.Preorder() {
		if node.Parent == nil || (events[node.Parent] != phylo.EventDup && recon[node.Parent] != recon[node]) {
			entering = append(entering, node)
		}
	}

	lnp := 0.0
	for _, enter := range entering {
		snode := recon[enter]
		span := snode.Dist

		// Copies at the bottom of the species branch: the entering
		// lineage, expanded through any duplications that stay within
		// the branch.
		var branchLeaves []*tree.Node
		var collect func(n *tree.Node)
		collect = func(n *tree.Node) {
			if events[n] != phylo.EventDup || recon[n] != snode {
				branchLeaves = append(branchLeaves, n)
				return
			}
			for _, c := range n.Children {
				collect(c)
			}
		}
		collect(enter)
		s := len(branchLeaves)

		// Probability of exactly s surviving copies, marginalizing
		// doomed copies up to maxdoom.
		d := 0.0
		if !snode.IsLeaf() {
			d = math.Exp(doom[snode])
		}
		p := 0.0
		for x := 0; x <= maxdoom; x++ {
			p += ProbBirthDeathCounts(s+x, span, birth, death) *
				choose(s+x, x) * math.Pow(d, float64(x)) * math.Pow(1-d, float64(s))
		}
		lnp += safeLog(p)

		// Ordering correction: of the labeled histories on s leaves,
		// only those compatible with the observed subtree count.
		if s > 2 {
			inBranch := make(map[*tree.Node]bool, s)
			for _, l := range branchLeaves {
				inBranch[l] = true
			}
			lnp += coal.LogNumTopologyHistories(enter, func(n *tree.Node) bool {
				return inBranch[n]
			})
			lnp -= logNumLabeledTopHistories(s)
		}
		if math.IsInf(lnp, -1) {
			return lnp, nil
		}
	}

	// Condition on non-extinction of the root lineage.
	lnp -= safeLog(1 - math.Exp(doom[recon[mapping[ltree.Root]]]))
	if math.IsNaN(lnp) {
		return 0, fmt.Errorf("duploss prior is NaN")
	}
	return lnp, nil
}

// logNumLabeledTopHistories is log of s!(s-1)!/2^(s-1), the number of
// labeled histories on s leaves.
func logNumLabeledTopHistories(s int) float64 {
	lnp := 0.0
	for k := 2; k <= s; k++ {
		lnp += math.Log(float64(k))
	}
	for k := 2; k <= s-1; k++ {
		lnp += math.Log(float64(k))
	}
	lnp -= float64(s-1) * math.Ln2
	return lnp
}

func choose(n, k int) float64 {
	if k < 0 || k > n {
		return 0
	}
	c := 1.0
	for i := 1; i <= k; i++ {
		c *= float64(n-k+i) / float64(i)
	}
	return c
}
