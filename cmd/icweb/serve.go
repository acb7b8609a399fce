package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/audit"
	"github.com/intellicloud/icweb/pkg/server"
)

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the content API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, b, loader, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			var opts []server.Option
			if cfg.Audit.Enabled {
				l, err := audit.New(cfg.Audit, audit.WithLogger(log.WithField("component", "audit")))
				if err != nil {
					return fmt.Errorf("init audit log: %w", err)
				}
				defer func() { _ = l.Close() }()
				opts = append(opts, server.WithAuditor(l))
			}

			srv := server.New(cfg, loader, b.admin(), log, opts...)

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log.WithFields(logrus.Fields{
				"listen":  cfg.Listen,
				"backend": cfg.Backend.Type,
				"ttl":     cfg.Cache.TTL,
				"admin":   cfg.Admin.Token != "",
				"audit":   cfg.Audit.Enabled,
			}).Info("starting icweb")
			return srv.ListenAndServe(ctx)
		},
	}
}
