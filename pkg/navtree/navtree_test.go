package navtree

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellicloud/icweb/pkg/models"
)

func ptr(s string) *string { return &s }

func item(id string, parent string, pos int) models.NavItem {
	it := models.NavItem{ID: id, Label: id, URL: "/" + strings.ToLower(id), OrderPosition: pos, IsActive: true}
	if parent != "" {
		it.ParentID = ptr(parent)
	}
	return it
}

func ids(level []*models.NavNode) []string {
	out := make([]string, len(level))
	for i, n := range level {
		out[i] = n.ID
	}
	return out
}

// shape renders a forest as nested "ID(children...)" for comparison.
func shape(level []*models.NavNode) string {
	parts := make([]string, len(level))
	for i, n := range level {
		parts[i] = n.ID
		if len(n.Children) > 0 {
			parts[i] += "(" + shape(n.Children) + ")"
		}
	}
	return strings.Join(parts, ",")
}

func TestBuildScenario(t *testing.T) {
	items := []models.NavItem{
		item("A", "", 0),
		item("B", "A", 1),
		item("C", "A", 0),
		item("D", "Z", 0),
	}

	roots, report := Build(items)

	assert.Equal(t, []string{"A", "D"}, ids(roots))
	assert.Equal(t, []string{"C", "B"}, ids(roots[0].Children))
	assert.Equal(t, []string{"D"}, report.Orphans)
	assert.Empty(t, report.Unreachable)
	assert.Equal(t, 4, Count(roots))
}

func TestBuildSortsSiblings(t *testing.T) {
	items := []models.NavItem{
		item("root", "", 0),
		item("three", "root", 3),
		item("one", "root", 1),
		item("two", "root", 2),
	}

	roots, report := Build(items)
	require.Len(t, roots, 1)
	assert.True(t, report.Clean())

	var got []int
	for _, c := range roots[0].Children {
		got = append(got, c.OrderPosition)
	}
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestBuildSortsRootsAndDeepLevels(t *testing.T) {
	items := []models.NavItem{
		item("b", "", 2),
		item("a", "", 1),
		item("a2", "a", 5),
		item("a1", "a", 4),
		item("a1y", "a1", 9),
		item("a1x", "a1", 8),
	}

	roots, _ := Build(items)
	assert.Equal(t, "a(a1(a1x,a1y),a2),b", shape(roots))
}

func TestBuildStableTieBreak(t *testing.T) {
	items := []models.NavItem{
		item("p", "", 0),
		item("first", "p", 1),
		item("second", "p", 1),
		item("third", "p", 0),
	}

	roots, _ := Build(items)
	assert.Equal(t, []string{"third", "first", "second"}, ids(roots[0].Children))
}

func TestBuildPermutationInvariant(t *testing.T) {
	base := []models.NavItem{
		item("home", "", 0),
		item("services", "", 1),
		item("cloud", "services", 0),
		item("aws", "cloud", 0),
		item("azure", "cloud", 1),
		item("orphan", "ghost", 2),
	}

	want, _ := Build(base)
	wantShape := shape(want)

	count := 0
	permute(base, func(perm []models.NavItem) {
		count++
		roots, report := Build(perm)
		assert.Equal(t, wantShape, shape(roots), "permutation %d", count)
		assert.Equal(t, []string{"orphan"}, report.Orphans)
	})
	assert.Equal(t, 720, count)
}

// permute calls fn with every ordering of items (Heap's algorithm).
func permute(items []models.NavItem, fn func([]models.NavItem)) {
	a := append([]models.NavItem(nil), items...)
	var gen func(k int)
	gen = func(k int) {
		if k == 1 {
			fn(append([]models.NavItem(nil), a...))
			return
		}
		for i := 0; i < k; i++ {
			gen(k - 1)
			if k%2 == 0 {
				a[i], a[k-1] = a[k-1], a[i]
			} else {
				a[0], a[k-1] = a[k-1], a[0]
			}
		}
	}
	gen(len(a))
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	items := []models.NavItem{
		item("b", "a", 1),
		item("a", "", 0),
	}
	before := fmt.Sprintf("%+v %s", items, *items[0].ParentID)

	_, _ = Build(items)

	assert.Equal(t, before, fmt.Sprintf("%+v %s", items, *items[0].ParentID))
	assert.Equal(t, "b", items[0].ID)
}

func TestBuildFreshStructurePerCall(t *testing.T) {
	items := []models.NavItem{item("a", "", 0), item("b", "a", 0)}

	first, _ := Build(items)
	first[0].Children = nil
	second, _ := Build(items)

	require.Len(t, second[0].Children, 1)
}

func TestBuildCycleIsUnreachable(t *testing.T) {
	items := []models.NavItem{
		item("root", "", 0),
		item("x", "y", 0),
		item("y", "x", 1),
		item("below", "x", 0),
		item("self", "self", 3),
	}

	roots, report := Build(items)

	assert.Equal(t, "root", shape(roots))
	assert.ElementsMatch(t, []string{"x", "y", "below", "self"}, report.Unreachable)
	assert.Empty(t, report.Orphans)
	assert.False(t, report.Clean())
}

func TestBuildEmpty(t *testing.T) {
	roots, report := Build(nil)
	assert.NotNil(t, roots)
	assert.Empty(t, roots)
	assert.True(t, report.Clean())
}

func TestBuildEmptyParentIDIsRoot(t *testing.T) {
	it := item("a", "", 0)
	it.ParentID = ptr("")

	roots, report := Build([]models.NavItem{it})
	assert.Equal(t, []string{"a"}, ids(roots))
	assert.Empty(t, report.Orphans)
}

func TestDetectCycles(t *testing.T) {
	items := []models.NavItem{
		item("root", "", 0),
		item("child", "root", 0),
		item("x", "y", 0),
		item("y", "z", 0),
		item("z", "x", 0),
		item("tail", "z", 0),
		item("dangling", "nowhere", 0),
	}

	assert.Equal(t, []string{"x", "y", "z", "tail"}, DetectCycles(items))
	assert.Empty(t, DetectCycles(items[:2]))
}

func TestWalkDepthAndSkip(t *testing.T) {
	roots, _ := Build([]models.NavItem{
		item("a", "", 0),
		item("a1", "a", 0),
		item("a1a", "a1", 0),
		item("b", "", 1),
	})

	var visited []string
	Walk(roots, func(n *models.NavNode, depth int) bool {
		visited = append(visited, fmt.Sprintf("%s@%d", n.ID, depth))
		return n.ID != "a1"
	})
	assert.Equal(t, []string{"a@0", "a1@1", "b@0"}, visited)
}
