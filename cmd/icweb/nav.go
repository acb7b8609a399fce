package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/navtree"
)

func newNavCmd(configPath *string) *cobra.Command {
	var (
		menu, lang string
		all        bool
	)

	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Inspect navigation menus",
	}

	// fetch reads the menu straight from the backend: active items, or every
	// item with --all.
	fetch := func(ctx context.Context) ([]models.NavItem, error) {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return nil, err
		}
		b, err := openBackend(cfg)
		if err != nil {
			return nil, err
		}
		defer func() { _ = b.Close() }()
		if lang == "" {
			lang = cfg.DefaultLanguage
		}
		var items []models.NavItem
		switch {
		case !all:
			items, err = b.source.Navigation(ctx, menu, lang)
		case b.store == nil:
			return nil, fmt.Errorf("--all needs the sqlite backend")
		default:
			items, err = b.store.AllNavigation(ctx, menu, lang)
		}
		if err != nil {
			return nil, fmt.Errorf("fetch navigation %s/%s: %w", menu, lang, err)
		}
		return items, nil
	}

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Print a menu as a tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Printf("Menu %s/%s has no items.\n", menu, lang)
				return nil
			}
			roots, _ := navtree.Build(items)
			printTree(os.Stdout, roots)
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Report orphaned and unreachable menu items",
		RunE: func(cmd *cobra.Command, args []string) error {
			items, err := fetch(cmd.Context())
			if err != nil {
				return err
			}
			roots, report := navtree.Build(items)
			fmt.Printf("Items:       %d\nReachable:   %d\nOrphans:     %d\nUnreachable: %d\n",
				len(items), navtree.Count(roots), len(report.Orphans), len(report.Unreachable))
			if report.Clean() {
				fmt.Println("Menu is consistent.")
				return nil
			}
			labels := labelIndex(items)
			for _, id := range report.Orphans {
				fmt.Printf("  orphan (missing parent, shown at root): %s\n", labels[id])
			}
			for _, id := range report.Unreachable {
				fmt.Printf("  unreachable (parent cycle): %s\n", labels[id])
			}
			return fmt.Errorf("menu %s/%s has %d problems", menu, lang, len(report.Orphans)+len(report.Unreachable))
		},
	}

	cmd.PersistentFlags().StringVar(&menu, "menu", content.DefaultMenu, "menu key")
	cmd.PersistentFlags().StringVar(&lang, "lang", "", "language (default from config)")
	cmd.PersistentFlags().BoolVar(&all, "all", false, "include inactive items (sqlite backend only)")
	cmd.AddCommand(showCmd, checkCmd)
	return cmd
}

func labelIndex(items []models.NavItem) map[string]string {
	m := make(map[string]string, len(items))
	for _, it := range items {
		m[it.ID] = fmt.Sprintf("%s [%s]", it.Label, it.ID)
	}
	return m
}

func printTree(w io.Writer, roots []*models.NavNode) {
	navtree.Walk(roots, func(n *models.NavNode, depth int) bool {
		fmt.Fprintf(w, "%s%s  %s\n", strings.Repeat("  ", depth), n.Label, n.URL)
		return true
	})
}
