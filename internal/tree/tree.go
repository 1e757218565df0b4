// Package tree implements the rooted, named-node trees shared by the
// coalescent, locus, and species layers of the DLCoal model.
package tree

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Node is a single tree node. Dist is the length of the branch above
// the node (toward the root).
type Node struct {
	Name     string
	Dist     float64
	Parent   *Node
	Children []*Node
}

func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Tree owns its nodes exclusively. Names are unique within a tree.
type Tree struct {
	Root  *Node
	Nodes map[string]*Node

	nextName int
}

func New() *Tree {
	return &Tree{Nodes: make(map[string]*Node)}
}

// NewName returns a numeric name not yet used in the tree. Numeric
// names mark machine-generated nodes; Finalize-style renaming turns
// them into prefixed human-readable names.
func (t *Tree) NewName() string {
	for {
		name := strconv.Itoa(t.nextName)
		t.nextName++
		if _, ok := t.Nodes[name]; !ok {
			return name
		}
	}
}

// NewNode creates a detached node registered in the tree. An empty
// name requests a fresh numeric name.
func (t *Tree) NewNode(name string) (*Node, error) {
	if name == "" {
		name = t.NewName()
	}
	if _, ok := t.Nodes[name]; ok {
		return nil, fmt.Errorf("duplicate node name %q", name)
	}
	node := &Node{Name: name}
	t.Nodes[name] = node
	return node, nil
}

// MakeRoot creates a root node for an empty tree.
func (t *Tree) MakeRoot(name string) (*Node, error) {
	if t.Root != nil {
		return nil, fmt.Errorf("tree already has a root")
	}
	node, err := t.NewNode(name)
	if err != nil {
		return nil, err
	}
	t.Root = node
	return node, nil
}

// AddChild links child under parent. Both nodes must belong to the
// tree.
func (t *Tree) AddChild(parent, child *Node) {
	if child.Parent != nil {
		child.Parent.removeChildLink(child)
	}
	child.Parent = parent
	parent.Children = append(parent.Children, child)
}

func (n *Node) removeChildLink(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			return
		}
	}
}

// Remove detaches the subtree rooted at node and deletes its nodes
// from the tree.
func (t *Tree) Remove(node *Node) {
	if node.Parent != nil {
		node.Parent.removeChildLink(node)
		node.Parent = nil
	}
	for _, n := range SubtreeNodes(node) {
		delete(t.Nodes, n.Name)
	}
	if node == t.Root {
		t.Root = nil
	}
}

// Rename changes a node's name, keeping the name index consistent.
func (t *Tree) Rename(oldName, newName string) error {
	node, ok := t.Nodes[oldName]
	if !ok {
		return fmt.Errorf("no node named %q", oldName)
	}
	if oldName == newName {
		return nil
	}
	if _, ok := t.Nodes[newName]; ok {
		return fmt.Errorf("node name %q already in use", newName)
	}
	delete(t.Nodes, oldName)
	node.Name = newName
	t.Nodes[newName] = node
	return nil
}

// Copy returns a deep copy of the tree.
func (t *Tree) Copy() *Tree {
	c, _ := t.CopyWithMap()
	return c
}

// CopyWithMap returns a deep copy plus the old-node to new-node
// mapping, so reconciliation maps can be carried across the copy.
func (t *Tree) CopyWithMap() (*Tree, map[*Node]*Node) {
	c := New()
	c.nextName = t.nextName
	mapping := make(map[*Node]*Node, len(t.Nodes))
	if t.Root == nil {
		return c, mapping
	}
	var walk func(old *Node) *Node
	walk = func(old *Node) *Node {
		node := &Node{Name: old.Name, Dist: old.Dist}
		c.Nodes[node.Name] = node
		mapping[old] = node
		for _, child := range old.Children {
			cc := walk(child)
			cc.Parent = node
			node.Children = append(node.Children, cc)
		}
		return node
	}
	c.Root = walk(t.Root)
	return c, mapping
}

// Merge moves every node of other into t, leaving other empty. Name
// collisions in other are renamed to fresh numeric names first.
// The merged subtree stays detached until linked with AddChild.
func (t *Tree) Merge(other *Tree) error {
	if other.Root == nil {
		return nil
	}
	for _, node := range other.Postorder() {
		if _, ok := t.Nodes[node.Name]; ok {
			if err := other.Rename(node.Name, t.NewName()); err != nil {
				return err
			}
		}
	}
	for name, node := range other.Nodes {
		t.Nodes[name] = node
	}
	other.Nodes = make(map[string]*Node)
	other.Root = nil
	return nil
}

// SubtreeNodes lists the subtree below (and including) node in
// postorder.
func SubtreeNodes(node *Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			walk(c)
		}
		out = append(out, n)
	}
	walk(node)
	return out
}

// Postorder lists all nodes, children before parents.
func (t *Tree) Postorder() []*Node {
	if t.Root == nil {
		return nil
	}
	return SubtreeNodes(t.Root)
}

// Preorder lists all nodes, parents before children.
func (t *Tree) Preorder() []*Node {
	if t.Root == nil {
		return nil
	}
	out := make([]*Node, 0, len(t.Nodes))
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	walk(t.Root)
	return out
}

// Leaves lists the leaves in tree order.
func (t *Tree) Leaves() []*Node {
	var out []*Node
	for _, n := range t.Postorder() {
		if n.IsLeaf() {
			out = append(out, n)
		}
	}
	return out
}

func (t *Tree) LeafNames() []string {
	leaves := t.Leaves()
	names := make([]string, len(leaves))
	for i, l := range leaves {
		names[i] = l.Name
	}
	return names
}

// RemoveSingleChildren splices out internal nodes with exactly one
// child, summing the two branch lengths. Returns the removed nodes.
func (t *Tree) RemoveSingleChildren() []*Node {
	var removed []*Node
	for _, node := range t.Postorder() {
		if len(node.Children) != 1 {
			continue
		}
		child := node.Children[0]
		child.Dist += node.Dist
		if node.Parent != nil {
			parent := node.Parent
			for i, c := range parent.Children {
				if c == node {
					parent.Children[i] = child
				}
			}
			child.Parent = parent
		} else {
			child.Parent = nil
			t.Root = child
		}
		delete(t.Nodes, node.Name)
		removed = append(removed, node)
	}
	return removed
}

// AddAbove inserts a new node on the branch above node (used for
// implied speciation points). The new node takes over the upper part
// of the branch; splitAt is the length left below it.
func (t *Tree) AddAbove(node *Node, name string, splitAt float64) (*Node, error) {
	mid, err := t.NewNode(name)
	if err != nil {
		return nil, err
	}
	parent := node.Parent
	mid.Dist = node.Dist - splitAt
	node.Dist = splitAt
	if parent != nil {
		for i, c := range parent.Children {
			if c == node {
				parent.Children[i] = mid
			}
		}
		mid.Parent = parent
	} else {
		t.Root = mid
	}
	node.Parent = mid
	mid.Children = []*Node{node}
	return mid, nil
}

// Timestamps returns each node's age: leaves at 0, parents at child
// age plus the child's branch length. The tree must be ultrametric;
// disagreement between children beyond a small tolerance is an error.
func (t *Tree) Timestamps() (map[*Node]float64, error) {
	const tol = 1e-6
	times := make(map[*Node]float64, len(t.Nodes))
	for _, node := range t.Postorder() {
		if node.IsLeaf() {
			times[node] = 0
			continue
		}
		age := times[node.Children[0]] + node.Children[0].Dist
		for _, c := range node.Children[1:] {
			other := times[c] + c.Dist
			if math.Abs(other-age) > tol*(1+math.Abs(age)) {
				return nil, fmt.Errorf("tree is not ultrametric at node %q", node.Name)
			}
		}
		times[node] = age
	}
	return times, nil
}

// SetDistsFromTimestamps rewrites branch lengths from an age
// assignment. The root branch length is cleared.
func (t *Tree) SetDistsFromTimestamps(times map[*Node]float64) {
	for _, node := range t.Postorder() {
		if node.Parent != nil {
			node.Dist = times[node.Parent] - times[node]
		} else {
			node.Dist = 0
		}
	}
}

// Validate checks that parent/child links and the name index agree.
func (t *Tree) Validate() error {
	if t.Root == nil {
		if len(t.Nodes) != 0 {
			return fmt.Errorf("rootless tree has %d registered nodes", len(t.Nodes))
		}
		return nil
	}
	if t.Root.Parent != nil {
		return fmt.Errorf("root has a parent")
	}
	seen := 0
	for _, node := range t.Postorder() {
		seen++
		if got, ok := t.Nodes[node.Name]; !ok || got != node {
			return fmt.Errorf("node %q missing from name index", node.Name)
		}
		for _, c := range node.Children {
			if c.Parent != node {
				return fmt.Errorf("child %q does not point back to %q", c.Name, node.Name)
			}
		}
	}
	if seen != len(t.Nodes) {
		return fmt.Errorf("name index has %d nodes, traversal found %d", len(t.Nodes), seen)
	}
	return nil
}

// SortedNames returns all node names in lexical order. Useful for
// stable serialization.
func (t *Tree) SortedNames() []string {
	names := make([]string, 0, len(t.Nodes))
	for name := range t.Nodes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
