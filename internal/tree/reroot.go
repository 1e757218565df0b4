package tree

// Reroot places a new root on the branch above node, splitting that
// branch in half. Rerooting on a child edge of a binary root is a
// no-op, since it yields the same rooting.
func (t *Tree) Reroot(node *Node) error {
	if node == nil || node.Parent == nil {
		return nil
	}
	if node.Parent == t.Root && len(t.Root.Children) == 2 {
		return nil
	}

	parent := node.Parent
	oldRoot := t.Root
	brokenDist := node.Dist

	// Detach the target edge.
	parent.removeChildLink(node)
	node.Parent = nil

	// Flip every edge on the path from parent up to the old root.
	cur := parent
	next := parent.Parent
	edgeDist := parent.Dist
	cur.Parent = nil
	for next != nil {
		following := next.Parent
		followingDist := next.Dist
		next.removeChildLink(cur)
		next.Parent = cur
		next.Dist = edgeDist
		cur.Children = append(cur.Children, next)
		cur = next
		next = following
		edgeDist = followingDist
	}

	newRoot, err := t.NewNode("")
	if err != nil {
		return err
	}
	node.Parent = newRoot
	node.Dist = brokenDist / 2
	parent.Parent = newRoot
	parent.Dist = brokenDist / 2
	newRoot.Children = []*Node{node, parent}
	t.Root = newRoot

	// The old root usually ends up with a single child; splice it out.
	if oldRoot != newRoot && len(oldRoot.Children) == 1 {
		child := oldRoot.Children[0]
		child.Dist += oldRoot.Dist
		grand := oldRoot.Parent
		for i, c := range grand.Children {
			if c == oldRoot {
				grand.Children[i] = child
			}
		}
		child.Parent = grand
		delete(t.Nodes, oldRoot.Name)
	}
	return nil
}
