package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/mcp"
)

func newMCPCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start icweb as an MCP server on stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, b, loader, err := setup(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = b.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return mcp.New(loader, log, version).Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
