package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/config"
	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/siteimport"
)

func newImportCmd(configPath *string) *cobra.Command {
	var (
		menu      string
		lang      string
		batchSize int
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import <site-structure.json>",
		Short: "Import a site structure file as pages and navigation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Backend.Type != config.BackendSQLite {
				return fmt.Errorf("import requires the sqlite backend, configured backend is %s", cfg.Backend.Type)
			}
			log, err := newLogger(cfg.Log)
			if err != nil {
				return err
			}

			site, err := siteimport.LoadFile(args[0])
			if err != nil {
				return err
			}

			b, err := openBackend(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			if lang == "" {
				lang = cfg.DefaultLanguage
			}
			res, err := siteimport.Run(cmd.Context(), b.store, site, siteimport.Options{
				MenuKey:   menu,
				Language:  lang,
				BatchSize: batchSize,
				DryRun:    dryRun,
				Logger:    log,
			})
			if err != nil {
				return err
			}

			if dryRun {
				fmt.Println("Dry run: nothing written.")
			} else {
				fmt.Printf("Pages:      %d imported, %d failed\n", res.Pages.Imported, res.Pages.Failed)
				fmt.Printf("Navigation: %d imported, %d failed\n", res.Navigation.Imported, res.Navigation.Failed)
			}
			v := res.Validation
			fmt.Printf("Validation: %d duplicate slugs, %d dangling parents\n",
				len(v.DuplicateSlugs), len(v.DanglingParents))
			if !res.OK() {
				return fmt.Errorf("import finished with failed batches")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&menu, "menu", content.DefaultMenu, "navigation menu to import into")
	cmd.Flags().StringVar(&lang, "lang", "", "language (default from config)")
	cmd.Flags().IntVar(&batchSize, "batch-size", siteimport.DefaultBatchSize, "rows per transaction")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing")
	return cmd
}
