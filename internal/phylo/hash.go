package phylo

import (
	"sort"
	"strings"

	"github.com/wutron/dlcoal/internal/tree"
)

// HashTree returns a canonical topology string for the tree: children
// are ordered by their own hashes, so any two trees with the same
// leaf-labeled topology hash identically regardless of child order or
// internal node names.
func HashTree(t *tree.Tree) string {
	if t.Root == nil {
		return ";"
	}
	return hashNode(t.Root) + ";"
}

func hashNode(node *tree.Node) string {
	if node.IsLeaf() {
		return node.Name
	}
	parts := make([]string, len(node.Children))
	for i, c := range node.Children {
		parts[i] = hashNode(c)
	}
	sort.Strings(parts)
	return "(" + strings.Join(parts, ",") + ")"
}
