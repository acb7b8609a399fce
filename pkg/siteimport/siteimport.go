// Package siteimport loads a hierarchical site-structure document and
// writes it to the content backend as pages and a navigation menu.
package siteimport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/navtree"
)

// DefaultBatchSize is the number of rows written per transaction.
const DefaultBatchSize = 100

const importAuthor = "import@icweb.local"

// navNamespace seeds deterministic navigation ids so re-imports update
// rows in place and parent references resolve.
var navNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("icweb:navigation"))

// ErrCycle is returned by Run when the navigation would contain a parent cycle.
var ErrCycle = errors.New("navigation contains circular parent references")

// Node is one entry of the site structure document.
type Node struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Headline     string `json:"headline"`
	CallToAction string `json:"call_to_action"`
	Children     []Node `json:"children"`
}

// Site is the root of the document: {"site": {"nodes": [...]}}.
type Site struct {
	Site struct {
		Name  string `json:"name"`
		Nodes []Node `json:"nodes"`
	} `json:"site"`
}

// FlatNode is a Node placed in the flattened structure.
type FlatNode struct {
	Node
	ParentID      string
	Depth         int
	OrderPosition int
	ChildrenCount int
}

// Load decodes a site structure document.
func Load(r io.Reader) (*Site, error) {
	var s Site
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("decode site structure: %w", err)
	}
	if s.Site.Nodes == nil {
		return nil, fmt.Errorf("invalid site structure: expected {\"site\": {\"nodes\": [...]}}")
	}
	return &s, nil
}

// LoadFile decodes the site structure document at path.
func LoadFile(path string) (*Site, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open site structure: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Flatten lists nodes depth-first, parents before children. OrderPosition
// is the index among siblings.
func Flatten(nodes []Node) []FlatNode {
	var out []FlatNode
	var walk func(level []Node, parentID string, depth int)
	walk = func(level []Node, parentID string, depth int) {
		for i, n := range level {
			out = append(out, FlatNode{
				Node:          n,
				ParentID:      parentID,
				Depth:         depth,
				OrderPosition: i,
				ChildrenCount: len(n.Children),
			})
			walk(n.Children, n.ID, depth+1)
		}
	}
	walk(nodes, "", 0)
	return out
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	slugUnsafe = regexp.MustCompile(`[^a-z0-9-]`)
)

// GenerateSlug turns a node id into a URL-safe slug.
func GenerateSlug(nodeID string) string {
	s := strings.ToLower(nodeID)
	s = whitespace.ReplaceAllString(s, "-")
	return slugUnsafe.ReplaceAllString(s, "")
}

// NavID returns the navigation row id for a node in a menu and language.
func NavID(menuKey, language, nodeID string) string {
	return uuid.NewSHA1(navNamespace, []byte(menuKey+":"+language+":"+nodeID)).String()
}

// ToPage converts a flattened node into a published page.
func ToPage(n FlatNode, language string) models.Page {
	title := n.Title
	if title == "" {
		title = "Untitled"
	}
	headline := n.Headline
	if headline == "" {
		headline = n.Title
	}
	return models.Page{
		Slug:        GenerateSlug(n.ID),
		Language:    language,
		Title:       title,
		Description: n.Description,
		Content: models.PageContent{
			Headline:      headline,
			Excerpt:       n.Description,
			CallToAction:  n.CallToAction,
			NodeID:        n.ID,
			Depth:         n.Depth,
			ChildrenCount: n.ChildrenCount,
		},
		Status:    models.PagePublished,
		CreatedBy: importAuthor,
		UpdatedBy: importAuthor,
	}
}

// ToNavItem converts a flattened node into an active navigation item.
// The home node links to "/"; other ids map "--" to path separators.
func ToNavItem(n FlatNode, menuKey, language string) models.NavItem {
	url := "/"
	if n.ID != "home" {
		url = "/" + strings.ReplaceAll(n.ID, "--", "/")
	}
	label := n.Title
	if label == "" {
		label = "Untitled"
	}
	item := models.NavItem{
		ID:            NavID(menuKey, language, n.ID),
		MenuKey:       menuKey,
		Language:      language,
		Label:         label,
		URL:           url,
		OrderPosition: n.OrderPosition,
		IsActive:      true,
	}
	if n.ParentID != "" {
		parent := NavID(menuKey, language, n.ParentID)
		item.ParentID = &parent
	}
	return item
}

// ValidationReport lists problems found before import.
type ValidationReport struct {
	DuplicateSlugs  []string
	DanglingParents []string
	Cycles          []string
}

// OK reports whether no problem was found.
func (v ValidationReport) OK() bool {
	return len(v.DuplicateSlugs) == 0 && len(v.DanglingParents) == 0 && len(v.Cycles) == 0
}

// Validate checks slug uniqueness, parent references and parent cycles.
func Validate(pages []models.Page, items []models.NavItem) ValidationReport {
	var report ValidationReport

	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		if seen[p.Slug] {
			report.DuplicateSlugs = append(report.DuplicateSlugs, p.Slug)
		}
		seen[p.Slug] = true
	}

	ids := make(map[string]bool, len(items))
	for _, it := range items {
		ids[it.ID] = true
	}
	for _, it := range items {
		if it.HasParent() && !ids[*it.ParentID] {
			report.DanglingParents = append(report.DanglingParents, it.Label)
		}
	}

	report.Cycles = navtree.DetectCycles(items)
	return report
}

// Writer stores imported rows. Each call is atomic.
type Writer interface {
	UpsertPages(ctx context.Context, pages []models.Page) error
	UpsertNavItems(ctx context.Context, items []models.NavItem) error
}

// Options controls an import run.
type Options struct {
	MenuKey   string
	Language  string
	BatchSize int
	DryRun    bool
	Logger    logrus.FieldLogger
}

// BatchResult counts rows written and rows in failed batches.
type BatchResult struct {
	Imported int
	Failed   int
}

// Result summarizes an import run.
type Result struct {
	Pages      BatchResult
	Navigation BatchResult
	Validation ValidationReport
}

// OK reports whether every batch succeeded.
func (r Result) OK() bool {
	return r.Pages.Failed == 0 && r.Navigation.Failed == 0
}

// Run flattens site, validates it and writes pages then navigation in
// batches. Duplicate slugs and dangling parents are logged and imported
// anyway; a parent cycle aborts the run before anything is written. A
// failed batch is counted and the run continues.
func Run(ctx context.Context, w Writer, site *Site, opts Options) (Result, error) {
	if opts.MenuKey == "" {
		opts.MenuKey = content.DefaultMenu
	}
	if opts.Language == "" {
		opts.Language = content.DefaultLanguage
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	flat := Flatten(site.Site.Nodes)
	pages := make([]models.Page, len(flat))
	items := make([]models.NavItem, len(flat))
	for i, n := range flat {
		pages[i] = ToPage(n, opts.Language)
		items[i] = ToNavItem(n, opts.MenuKey, opts.Language)
	}
	log.WithField("nodes", len(flat)).Info("flattened site structure")

	var res Result
	res.Validation = Validate(pages, items)
	if n := len(res.Validation.DuplicateSlugs); n > 0 {
		log.WithField("slugs", res.Validation.DuplicateSlugs).Warnf("%d duplicate slugs found", n)
	}
	if n := len(res.Validation.DanglingParents); n > 0 {
		log.WithField("items", res.Validation.DanglingParents).Warnf("%d navigation items reference a missing parent", n)
	}
	if len(res.Validation.Cycles) > 0 {
		return res, fmt.Errorf("%w: %s", ErrCycle, strings.Join(res.Validation.Cycles, ", "))
	}
	if opts.DryRun {
		return res, nil
	}

	res.Pages = writeBatches(ctx, log.WithField("kind", "pages"), pages, opts.BatchSize, w.UpsertPages)
	res.Navigation = writeBatches(ctx, log.WithField("kind", "navigation"), items, opts.BatchSize, w.UpsertNavItems)
	if err := ctx.Err(); err != nil {
		return res, err
	}
	return res, nil
}

func writeBatches[T any](ctx context.Context, log logrus.FieldLogger, rows []T, size int, write func(context.Context, []T) error) BatchResult {
	var res BatchResult
	for start := 0; start < len(rows); start += size {
		end := min(start+size, len(rows))
		batch := rows[start:end]
		n := start/size + 1
		if err := write(ctx, batch); err != nil {
			log.WithError(err).WithField("batch", n).Error("batch failed")
			res.Failed += len(batch)
			continue
		}
		res.Imported += len(batch)
		log.WithField("batch", n).Debugf("%d rows imported", len(batch))
	}
	return res
}
