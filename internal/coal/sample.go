package coal

import (
	"fmt"
	"math"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/wutron/dlcoal/internal/phylo"
	"github.com/wutron/dlcoal/internal/tree"
)

// SampleCoalWaitTime draws the waiting time to the next coalescent
// event among k lineages in a population of size n.
func SampleCoalWaitTime(k int, n float64, rng *xrand.Rand) float64 {
	rate := float64(k*(k-1)) / 2 / n
	exp := distuv.Exponential{Rate: rate, Src: rng}
	return exp.Rand()
}

// SampleMulticoalTree simulates a gene tree under the multispecies
// coalescent along htree: within each branch, lineages coalesce with
// Kingman waiting times for the branch's duration; survivors pass
// into the parent branch; the root branch coalesces to one lineage.
// Leaf branches start with leafCounts lineages (default one each).
// Returns the gene tree and its reconciliation onto htree.
func SampleMulticoalTree(htree *tree.Tree, popsizes map[string]float64, leafCounts map[string]int, rng *xrand.Rand) (*tree.Tree, phylo.Recon, error) {
	if htree.Root == nil {
		return nil, nil, fmt.Errorf("empty higher tree")
	}
	times, err := htree.Timestamps()
	if err != nil {
		return nil, nil, err
	}

	gtree := tree.New()
	recon := make(phylo.Recon)
	ages := make(map[*tree.Node]float64)
	active := make(map[*tree.Node][]*tree.Node)

	newNode := func(name string, hnode *tree.Node) (*tree.Node, error) {
		node, err := gtree.NewNode(name)
		if err != nil {
			return nil, err
		}
		recon[node] = hnode
		return node, nil
	}

	for _, hnode := range htree.Postorder() {
		var pool []*tree.Node
		if hnode.IsLeaf() {
			count := 1
			if leafCounts != nil {
				count = leafCounts[hnode.Name]
			}
			for i := 1; i <= count; i++ {
				leaf, err := newNode(fmt.Sprintf("%s_%d", hnode.Name, i), hnode)
				if err != nil {
					return nil, nil, err
				}
				ages[leaf] = times[hnode]
				pool = append(pool, leaf)
			}
		} else {
			for _, c := range hnode.Children {
				pool = append(pool, active[c]...)
			}
		}

		age := times[hnode]
		limit := math.Inf(1)
		if hnode.Parent != nil {
			limit = times[hnode.Parent]
		}
		n := popsizes[hnode.Name]
		for len(pool) > 1 {
			age += SampleCoalWaitTime(len(pool), n, rng)
			if age >= limit {
				break
			}
			i := rng.Intn(len(pool))
			a := pool[i]
			pool = append(pool[:i], pool[i+1:]...)
			j := rng.Intn(len(pool))
			b := pool[j]
			pool = append(pool[:j], pool[j+1:]...)

			parent, err := newNode("", hnode)
			if err != nil {
				return nil, nil, err
			}
			ages[parent] = age
			gtree.AddChild(parent, a)
			gtree.AddChild(parent, b)
			pool = append(pool, parent)
		}
		active[hnode] = pool
	}

	survivors := active[htree.Root]
	if len(survivors) != 1 {
		return nil, nil, fmt.Errorf("root branch left %d lineages", len(survivors))
	}
	gtree.Root = survivors[0]
	for node, age := range ages {
		if node.Parent != nil {
			node.Dist = ages[node.Parent] - age
		}
	}
	return gtree, recon, nil
}
