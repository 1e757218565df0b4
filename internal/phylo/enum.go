package phylo

import (
	"iter"

	"github.com/wutron/dlcoal/internal/tree"
)

// ReconEnum enumerates reconciliation variants of a gene tree onto a
// higher tree, starting from an LCA baseline. A variant raises the
// mapping of up to depth internal nodes toward the root; every
// variant keeps the ancestor-ordering invariant (a node's mapping
// never rises above its parent's). The baseline itself is not
// yielded. Exhaustion is reported by Next returning false; it is a
// normal control-flow condition, not an error.
type ReconEnum struct {
	next func() (Recon, bool)
	stop func()
}

// NewReconEnum builds the enumerator. base must be a valid LCA
// reconciliation of gtree onto htree; it is not mutated.
func NewReconEnum(gtree, htree *tree.Tree, base Recon, depth int) *ReconEnum {
	seq := enumRecons(gtree, htree, base, depth)
	next, stop := iter.Pull(seq)
	return &ReconEnum{next: next, stop: stop}
}

// Next returns the next variant, or false when the space within the
// depth bound is exhausted.
func (e *ReconEnum) Next() (Recon, bool) {
	return e.next()
}

// Close releases the underlying iterator early.
func (e *ReconEnum) Close() {
	e.stop()
}

func enumRecons(gtree, htree *tree.Tree, base Recon, depth int) iter.Seq[Recon] {
	// Internal nodes in preorder: parents are assigned before their
	// children, so a raised parent widens its children's range.
	var order []*tree.Node
	for _, node := range gtree.Preorder() {
		if !node.IsLeaf() {
			order = append(order, node)
		}
	}

	return func(yield func(Recon) bool) {
		current := base.Copy()
		var walk func(i, changesLeft int, changed bool) bool
		walk = func(i, changesLeft int, changed bool) bool {
			if i == len(order) {
				if !changed {
					return true // skip the unmodified baseline
				}
				return yield(current.Copy())
			}
			node := order[i]

			// Keep the baseline mapping for this node.
			if !walk(i+1, changesLeft, changed) {
				return false
			}
			if changesLeft == 0 {
				return true
			}

			// Raise the mapping toward the root, bounded by the
			// parent's current mapping.
			var limit *tree.Node
			if node.Parent != nil {
				limit = current[node.Parent]
			} else {
				limit = htree.Root
			}
			orig := current[node]
			if orig != limit {
				for m := orig.Parent; m != nil; m = m.Parent {
					current[node] = m
					if !walk(i+1, changesLeft-1, true) {
						current[node] = orig
						return false
					}
					if m == limit {
						break
					}
				}
				current[node] = orig
			}
			return true
		}
		walk(0, depth, false)
	}
}
