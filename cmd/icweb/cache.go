package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/intellicloud/icweb/pkg/config"
	"github.com/intellicloud/icweb/pkg/models"
)

// adminClient talks to the admin API of a running server. The cache lives
// in that server's memory, so these commands cannot open it directly.
type adminClient struct {
	base  string
	token string
	http  *http.Client
}

func newAdminClient(cfg *config.Config, addr string) (*adminClient, error) {
	if cfg.Admin.Token == "" {
		return nil, fmt.Errorf("admin.token is not configured")
	}
	if addr == "" {
		addr = cfg.Listen
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
	}
	if !strings.Contains(addr, "://") {
		addr = "http://" + addr
	}
	return &adminClient{
		base:  strings.TrimRight(addr, "/"),
		token: cfg.Admin.Token,
		http:  &http.Client{Timeout: 10 * time.Second},
	}, nil
}

func (c *adminClient) do(method, path string, dst any) error {
	req, err := http.NewRequest(method, c.base+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("contact server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}
	if dst == nil {
		return nil
	}
	return json.Unmarshal(body, dst)
}

func newCacheCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the content cache of a running server",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := newAdminClient(cfg, addr)
			if err != nil {
				return err
			}

			var stats models.CacheStats
			if err := c.do(http.MethodGet, "/api/admin/cache/stats", &stats); err != nil {
				return err
			}
			fmt.Printf("Entries:   %d\nHits:      %d\nMisses:    %d\nEvictions: %d\n",
				stats.Entries, stats.Hits, stats.Misses, stats.Evictions)
			return nil
		},
	}

	var key string
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			c, err := newAdminClient(cfg, addr)
			if err != nil {
				return err
			}

			path := "/api/admin/cache/clear"
			if key != "" {
				path += "?key=" + url.QueryEscape(key)
			}
			if err := c.do(http.MethodPost, path, nil); err != nil {
				return err
			}
			if key != "" {
				fmt.Printf("Cache key %s cleared.\n", key)
			} else {
				fmt.Println("All cache entries cleared.")
			}
			return nil
		},
	}
	clearCmd.Flags().StringVar(&key, "key", "", "only clear this key, e.g. nav:main:en")

	cmd.PersistentFlags().StringVar(&addr, "addr", "", "server address (default from listen)")
	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
