// Package navtree turns flat, parent-referencing navigation rows into an
// ordered menu forest.
package navtree

import (
	"sort"

	"github.com/intellicloud/icweb/pkg/models"
)

// Report describes data problems found while building a tree. Neither kind
// is fatal.
type Report struct {
	// Orphans are ids of items whose parent id did not match any item.
	// They are promoted to roots.
	Orphans []string
	// Unreachable are ids of items whose parent chain loops and therefore
	// never reaches a root. They are absent from the built forest.
	Unreachable []string
}

// Clean reports whether the build found no orphans and no unreachable items.
func (r Report) Clean() bool {
	return len(r.Orphans) == 0 && len(r.Unreachable) == 0
}

// Build arranges items into a forest. Children are attached in input order
// and then stably sorted by OrderPosition at every level, roots included.
// Items with a dangling parent id become roots. Build does not modify items
// and returns a fresh structure on every call.
func Build(items []models.NavItem) ([]*models.NavNode, Report) {
	var report Report

	nodes := make([]*models.NavNode, len(items))
	lookup := make(map[string]*models.NavNode, len(items))
	for i, item := range items {
		n := &models.NavNode{NavItem: item, Children: []*models.NavNode{}}
		nodes[i] = n
		lookup[item.ID] = n
	}

	roots := make([]*models.NavNode, 0)
	for _, n := range nodes {
		if n.HasParent() {
			if parent, ok := lookup[*n.ParentID]; ok {
				parent.Children = append(parent.Children, n)
				continue
			}
			report.Orphans = append(report.Orphans, n.ID)
		}
		roots = append(roots, n)
	}

	seen := make(map[*models.NavNode]bool, len(nodes))
	sortLevel(roots, seen)

	for _, n := range nodes {
		if !seen[n] {
			report.Unreachable = append(report.Unreachable, n.ID)
		}
	}
	return roots, report
}

func sortLevel(level []*models.NavNode, seen map[*models.NavNode]bool) {
	sort.SliceStable(level, func(i, j int) bool {
		return level[i].OrderPosition < level[j].OrderPosition
	})
	for _, n := range level {
		if seen[n] {
			continue
		}
		seen[n] = true
		sortLevel(n.Children, seen)
	}
}

// DetectCycles returns, in input order, the ids of items whose parent chain
// never terminates: members of a parent cycle and items hanging below one.
// A dangling parent id terminates a chain.
func DetectCycles(items []models.NavItem) []string {
	ids := make(map[string]bool, len(items))
	for _, item := range items {
		ids[item.ID] = true
	}
	parent := make(map[string]string, len(items))
	for _, item := range items {
		if item.HasParent() && ids[*item.ParentID] {
			parent[item.ID] = *item.ParentID
		}
	}

	// memoized per id: true = chain loops
	loops := make(map[string]bool, len(items))
	var cyclic []string
	for _, item := range items {
		var path []string
		onPath := make(map[string]bool)
		id := item.ID
		result := false
		for {
			if known, ok := loops[id]; ok {
				result = known
				break
			}
			if onPath[id] {
				result = true
				break
			}
			onPath[id] = true
			path = append(path, id)
			p, ok := parent[id]
			if !ok {
				break
			}
			id = p
		}
		for _, p := range path {
			loops[p] = result
		}
		if result {
			cyclic = append(cyclic, item.ID)
		}
	}
	return cyclic
}

// Walk visits every node depth-first in sibling order. Returning false from
// fn skips that node's children.
func Walk(roots []*models.NavNode, fn func(n *models.NavNode, depth int) bool) {
	var visit func(level []*models.NavNode, depth int)
	visit = func(level []*models.NavNode, depth int) {
		for _, n := range level {
			if fn(n, depth) {
				visit(n.Children, depth+1)
			}
		}
	}
	visit(roots, 0)
}

// Count returns the number of nodes in the forest.
func Count(roots []*models.NavNode) int {
	total := 0
	Walk(roots, func(*models.NavNode, int) bool {
		total++
		return true
	})
	return total
}
