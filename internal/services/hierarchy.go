package services

import (
	"github.com/snow-cube/paper-manager/internal/category"
)

// parentLookup returns the parent id of a category, or nil for a root.
type parentLookup func(id uint) (*uint, error)

// createsCycle reports whether making newParent the parent of id would put id
// under itself.
func createsCycle(id uint, newParent *uint, parentOf parentLookup) (bool, error) {
	if newParent == nil {
		return false, nil
	}
	seen := make(map[uint]struct{})
	cur := *newParent
	for {
		if cur == id {
			return true, nil
		}
		if _, loop := seen[cur]; loop {
			return true, nil
		}
		seen[cur] = struct{}{}

		parent, err := parentOf(cur)
		if err != nil {
			return false, err
		}
		if parent == nil {
			return false, nil
		}
		cur = *parent
	}
}

// rollUpCounts returns, for every node, its own count plus all of its
// descendants' counts.
func rollUpCounts(nodes []category.Record, direct map[uint]int) map[uint]int {
	totals := make(map[uint]int, len(nodes))
	var visit func(n *category.TreeNode) int
	visit = func(n *category.TreeNode) int {
		sum := direct[n.Record.ID]
		for _, child := range n.Children {
			sum += visit(child)
		}
		totals[n.Record.ID] = sum
		return sum
	}
	for _, root := range category.BuildTree(nodes) {
		visit(root)
	}
	return totals
}

type categoryCount struct {
	CategoryID uint
	Total      int
}

func countsByCategory(rows []categoryCount) map[uint]int {
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.CategoryID] = row.Total
	}
	return out
}
