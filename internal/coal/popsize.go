package coal

import (
	"fmt"

	"github.com/wutron/dlcoal/internal/tree"
)

// PopsizeSpec specifies effective population sizes for a tree: either
// one scalar for every branch, or a per-branch table keyed by node
// name. A non-nil ByBranch wins over Scalar.
type PopsizeSpec struct {
	Scalar   float64
	ByBranch map[string]float64
}

// InitPopsizes resolves spec into a complete per-branch
// table for t. Every node of t must be covered.
func InitPopsizes(t *tree.Tree, spec PopsizeSpec) (map[string]float64, error) {
	popsizes := make(map[string]float64, len(t.Nodes))
	if spec.ByBranch != nil {
		for name := range t.Nodes {
			n, ok := spec.ByBranch[name]
			if !ok {
				return nil, fmt.Errorf("no population size for branch %q", name)
			}
			popsizes[name] = n
		}
		return popsizes, nil
	}
	if spec.Scalar <= 0 {
		return nil, fmt.Errorf("population size must be positive, got %g", spec.Scalar)
	}
	for name := range t.Nodes {
		popsizes[name] = spec.Scalar
	}
	return popsizes, nil
}
