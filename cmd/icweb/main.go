package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/cache"
	"github.com/intellicloud/icweb/pkg/config"
	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/server"
	"github.com/intellicloud/icweb/pkg/store/rest"
	"github.com/intellicloud/icweb/pkg/store/sqlite"
)

var version = "dev"

const defaultConfigPath = "icweb.yaml"

func main() {
	var configPath string

	root := &cobra.Command{
		Use:           "icweb",
		Short:         "icweb serves cached site content, navigation and settings",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to config file")

	root.AddCommand(
		newServeCmd(&configPath),
		newCacheCmd(&configPath),
		newNavCmd(&configPath),
		newImportCmd(&configPath),
		newMCPCmd(&configPath),
		newAuditCmd(&configPath),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the config file. A missing default file yields the
// built-in defaults; an explicitly named file must exist.
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if path == defaultConfigPath && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg config.LogConfig) (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	log.SetLevel(level)
	if strings.EqualFold(cfg.Format, "json") {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return log, nil
}

// backend bundles the configured content source with its optional write
// side. store is nil for the read-only REST backend.
type backend struct {
	source content.Source
	store  *sqlite.Store
}

func (b *backend) admin() server.AdminStore {
	if b.store == nil {
		return nil
	}
	return b.store
}

func (b *backend) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

func openBackend(cfg *config.Config) (*backend, error) {
	switch cfg.Backend.Type {
	case config.BackendREST:
		c, err := rest.New(cfg.Backend.URL, cfg.Backend.APIKey, cfg.Backend.Timeout)
		if err != nil {
			return nil, fmt.Errorf("init rest backend: %w", err)
		}
		return &backend{source: c}, nil
	default:
		st, err := sqlite.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("init sqlite backend: %w", err)
		}
		return &backend{source: st, store: st}, nil
	}
}

// setup loads config, logger and backend, and builds the content loader.
func setup(configPath string) (*config.Config, *logrus.Logger, *backend, *content.Loader, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	b, err := openBackend(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	loader := content.New(b.source, cache.New(cache.WithTTL(cfg.Cache.TTL)),
		content.WithLogger(log),
		content.WithDefaultLanguage(cfg.DefaultLanguage),
	)
	return cfg, log, b, loader, nil
}
