package tree

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/evolbioinfo/gotree/io/newick"
	gotree "github.com/evolbioinfo/gotree/tree"
)

// Newick returns the one-line Newick string for the tree, including
// the root's name and branch length.
func (t *Tree) Newick() string {
	if t.Root == nil {
		return ";"
	}
	var b strings.Builder
	writeNewickNode(&b, t.Root)
	b.WriteString(";")
	return b.String()
}

func writeNewickNode(b *strings.Builder, node *Node) {
	if !node.IsLeaf() {
		b.WriteString("(")
		for i, c := range node.Children {
			if i > 0 {
				b.WriteString(",")
			}
			writeNewickNode(b, c)
		}
		b.WriteString(")")
	}
	b.WriteString(node.Name)
	b.WriteString(":")
	b.WriteString(strconv.FormatFloat(node.Dist, 'g', -1, 64))
}

// WriteNewick writes the tree to w in Newick format with a trailing
// newline.
func (t *Tree) WriteNewick(w io.Writer) error {
	_, err := io.WriteString(w, t.Newick()+"\n")
	return err
}

// ParseNewick reads a single Newick tree from r. Parsing is delegated
// to gotree; the result is converted into this package's owned-node
// representation, with fresh numeric names assigned to unnamed
// internal nodes.
func ParseNewick(r io.Reader) (*Tree, error) {
	parser := newick.NewParser(r)
	gt, err := parser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse newick: %w", err)
	}
	return fromGotree(gt)
}

// ParseNewickString parses a Newick string.
func ParseNewickString(s string) (*Tree, error) {
	return ParseNewick(strings.NewReader(s))
}

func fromGotree(gt *gotree.Tree) (*Tree, error) {
	root := gt.Root()
	if root == nil {
		return nil, fmt.Errorf("parse newick: empty tree")
	}
	t := New()
	var walk func(cur, prev *gotree.Node, dist float64) (*Node, error)
	walk = func(cur, prev *gotree.Node, dist float64) (*Node, error) {
		node, err := t.NewNode(cur.Name())
		if err != nil {
			return nil, err
		}
		if dist > 0 {
			node.Dist = dist
		}
		neighbors := cur.Neigh()
		edges := cur.Edges()
		for i, nb := range neighbors {
			if nb == prev {
				continue
			}
			length := edges[i].Length()
			child, err := walk(nb, cur, length)
			if err != nil {
				return nil, err
			}
			child.Parent = node
			node.Children = append(node.Children, child)
		}
		return node, nil
	}
	rootNode, err := walk(root, nil, 0)
	if err != nil {
		return nil, err
	}
	t.Root = rootNode
	return t, nil
}
