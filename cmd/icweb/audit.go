package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/audit"
	"github.com/intellicloud/icweb/pkg/models"
)

func newAuditCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the admin change log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(configPath),
		newAuditStatsCmd(configPath),
		newAuditCleanupCmd(configPath),
	)
	return cmd
}

func newAuditSearchCmd(configPath *string) *cobra.Command {
	var (
		op     string
		target string
		since  string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search change log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				Operation: op,
				Target:    target,
				Limit:     limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatChangeEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "", "filter by operation, e.g. \"upsert page\"")
	cmd.Flags().StringVar(&target, "target", "", "filter by target, e.g. home:en")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditStatsCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show change counts by operation and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete change log entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(*configPath)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d change log entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger(configPath string) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	if !cfg.Audit.Enabled {
		return nil, nil, fmt.Errorf("audit log is not enabled (set audit.enabled in %s)", configPath)
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatChangeEntries(entries []models.ChangeEntry) string {
	if len(entries) == 0 {
		return "No change log entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-24s %-30s %-18s %s\n", "TIME", "OPERATION", "TARGET", "ACTOR", "CACHE KEYS")
	b.WriteString(strings.Repeat("-", 110) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-20s %-24s %-30s %-18s %s\n",
			e.CreatedAt.Format("2006-01-02 15:04:05"), e.Operation, e.Target, e.Actor,
			strings.Join(e.CacheKeys, ","))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-25s %-12s %8s\n", "OPERATION", "DAY", "COUNT")
	b.WriteString(strings.Repeat("-", 48) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-25s %-12s %8d\n", s.Operation, s.Day, s.Count)
	}
	return b.String()
}
