package coal

import (
	"math"

	"github.com/wutron/dlcoal/internal/tree"
)

// LogNumTopologyHistories returns the log count of coalescent event
// orderings compatible with the subtree rooted at node. The boundary
// predicate marks where the subtree stops; boundary nodes contribute
// no internal events. For a subtree with m internal nodes the count
// is m! divided by the product over internal nodes of their internal
// subtree sizes.
func LogNumTopologyHistories(node *tree.Node, boundary func(*tree.Node) bool) float64 {
	logH := 0.0
	var size func(n *tree.Node) int
	size = func(n *tree.Node) int {
		if boundary(n) || n.IsLeaf() {
			return 0
		}
		s := 1
		for _, c := range n.Children {
			s += size(c)
		}
		logH -= math.Log(float64(s))
		return s
	}
	m := size(node)
	for k := 2; k <= m; k++ {
		logH += math.Log(float64(k))
	}
	return logH
}
