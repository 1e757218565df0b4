package phylo

import (
	"github.com/wutron/dlcoal/internal/tree"
)

// AddImpliedSpecNodes inserts single-child nodes at every speciation
// point a gene branch passes through without an explicit node, so
// that each gene branch afterwards lies within a single species
// branch. recon and events are extended in place. Returns the
// inserted nodes.
//
// The tree is mutated; callers who need the original intact should
// work on a copy.
func AddImpliedSpecNodes(gtree, stree *tree.Tree, recon Recon, events map[*tree.Node]string) ([]*tree.Node, error) {
	var added []*tree.Node
	for _, node := range gtree.Postorder() {
		if node.Parent == nil {
			continue
		}
		// Species nodes crossed between this node and its parent:
		// strictly between the two mappings, plus the parent's own
		// mapping when the parent is a duplication (it lives in the
		// branch above its species node).
		bottom := recon[node]
		top := recon[node.Parent]
		var crossed []*tree.Node
		for s := bottom.Parent; s != nil && s != top; s = s.Parent {
			crossed = append(crossed, s)
		}
		if events[node.Parent] == EventDup && bottom != top {
			crossed = append(crossed, top)
		}
		cur := node
		for _, s := range crossed {
			mid, err := gtree.AddAbove(cur, "", cur.Dist/2)
			if err != nil {
				return nil, err
			}
			recon[mid] = s
			events[mid] = EventSpec
			added = append(added, mid)
			cur = mid
		}
	}
	return added, nil
}
