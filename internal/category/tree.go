package category

import "encoding/json"

// TreeNode wraps a Record with its direct children, kept in the order the
// records were supplied.
type TreeNode struct {
	Record   Record
	Children []*TreeNode
}

func (n *TreeNode) MarshalJSON() ([]byte, error) {
	fields := n.Record.fields()
	children := n.Children
	if children == nil {
		children = []*TreeNode{}
	}
	fields["children"] = children
	return json.Marshal(fields)
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *TreeNode) Count() int {
	total := 1
	for _, child := range n.Children {
		total += child.Count()
	}
	return total
}

// Walk visits n and its descendants depth first. Returning false from fn
// skips the node's children.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int) bool) {
	n.walk(fn, 0)
}

func (n *TreeNode) walk(fn func(node *TreeNode, depth int) bool, depth int) {
	if !fn(n, depth) {
		return
	}
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// BuildTree turns a flat parent-referenced list into a forest. Records whose
// parent is not in the list, or who name themselves as parent, become roots.
func BuildTree(records []Record) []*TreeNode {
	nodes := make(map[uint]*TreeNode, len(records))
	ordered := make([]*TreeNode, len(records))
	for i, rec := range records {
		node := &TreeNode{Record: rec, Children: []*TreeNode{}}
		ordered[i] = node
		if _, dup := nodes[rec.ID]; !dup {
			nodes[rec.ID] = node
		}
	}

	roots := make([]*TreeNode, 0)
	for _, node := range ordered {
		parentID := node.Record.ParentID
		if parentID != nil && *parentID != node.Record.ID {
			if parent, ok := nodes[*parentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}

// CountForest returns the total number of nodes in roots.
func CountForest(roots []*TreeNode) int {
	total := 0
	for _, root := range roots {
		total += root.Count()
	}
	return total
}
