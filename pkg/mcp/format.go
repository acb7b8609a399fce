package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/navtree"
)

// formatPage formats a page as text.
func formatPage(p *models.Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", p.Title)
	b.WriteString(strings.Repeat("-", max(len(p.Title), 10)) + "\n")
	fmt.Fprintf(&b, "  Slug:     %s\n", p.Slug)
	fmt.Fprintf(&b, "  Language: %s\n", p.Language)
	fmt.Fprintf(&b, "  Status:   %s\n", p.Status)
	if p.Content.Headline != "" {
		fmt.Fprintf(&b, "  Headline: %s\n", p.Content.Headline)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "  Summary:  %s\n", p.Description)
	}
	if p.Content.CallToAction != "" {
		fmt.Fprintf(&b, "  CTA:      %s\n", p.Content.CallToAction)
	}
	if !p.UpdatedAt.IsZero() {
		fmt.Fprintf(&b, "  Updated:  %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

// formatNavigation renders a navigation tree, two spaces per level.
func formatNavigation(roots []*models.NavNode) string {
	if len(roots) == 0 {
		return "No navigation items found."
	}
	var b strings.Builder
	navtree.Walk(roots, func(n *models.NavNode, depth int) bool {
		fmt.Fprintf(&b, "%s- %s (%s)\n", strings.Repeat("  ", depth), n.Label, n.URL)
		return true
	})
	fmt.Fprintf(&b, "\n%d items\n", navtree.Count(roots))
	return b.String()
}

// formatSettings formats settings as a name-sorted table.
func formatSettings(settings models.SiteSettings) string {
	if len(settings) == 0 {
		return "No site settings found."
	}
	names := make([]string, 0, len(settings))
	width := len("Setting")
	for name := range settings {
		names = append(names, name)
		width = max(width, len(name))
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "%-*s  %s\n", width, "Setting", "Value")
	b.WriteString(strings.Repeat("-", width+20) + "\n")
	for _, name := range names {
		fmt.Fprintf(&b, "%-*s  %s\n", width, name, settings[name])
	}
	return b.String()
}

// formatSEO formats SEO metadata, omitting empty fields.
func formatSEO(m *models.SEOMeta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "SEO for %s (%s)\n", m.PageSlug, m.Language)
	for _, f := range []struct{ name, value string }{
		{"Title", m.MetaTitle},
		{"Description", m.MetaDescription},
		{"Keywords", m.Keywords},
		{"OG Title", m.OGTitle},
		{"OG Description", m.OGDescription},
		{"OG Image", m.OGImage},
		{"Canonical", m.CanonicalURL},
		{"Robots", m.Robots},
	} {
		if f.value != "" {
			fmt.Fprintf(&b, "  %-15s %s\n", f.name+":", f.value)
		}
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:   %d\n"+
		"  Hits:      %d\n"+
		"  Misses:    %d\n"+
		"  Evictions: %d\n"+
		"  Hit Rate:  %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, stats.Evictions, hitRate)
}
