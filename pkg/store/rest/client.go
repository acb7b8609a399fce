// Package rest reads site content from a hosted PostgREST-compatible
// backend, the way the public site's browser client does.
package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/store"
)

const restPath = "/rest/v1/"

// Client queries tables with equality filters and ordering over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// New creates a Client. timeout bounds each request; zero means no limit.
func New(baseURL, apiKey string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q", baseURL)
	}
	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}, nil
}

// query describes a table read: column = value filters, an optional
// ascending order column and an optional row limit.
type query struct {
	table   string
	filters [][2]string
	order   string
	limit   int
}

func (q query) eq(column, value string) query {
	q.filters = append(q.filters, [2]string{column, value})
	return q
}

func (q query) values() url.Values {
	v := url.Values{}
	v.Set("select", "*")
	for _, f := range q.filters {
		v.Set(f[0], "eq."+f[1])
	}
	if q.order != "" {
		v.Set("order", q.order+".asc")
	}
	if q.limit > 0 {
		v.Set("limit", fmt.Sprint(q.limit))
	}
	return v
}

// get runs q and decodes the JSON array response into dst.
func (c *Client) get(ctx context.Context, q query, dst any) error {
	endpoint := c.baseURL + restPath + q.table + "?" + q.values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("query %s: %w", q.table, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", q.table, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("query %s: status %d: %s", q.table, resp.StatusCode, apiMessage(body))
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("decode %s: %w", q.table, err)
	}
	return nil
}

// apiMessage extracts the "message" field of a PostgREST error body.
func apiMessage(body []byte) string {
	var e struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Message != "" {
		return e.Message
	}
	return strings.TrimSpace(string(body))
}

// PageBySlug returns the published page with the given slug and language.
func (c *Client) PageBySlug(ctx context.Context, slug, language string) (*models.Page, error) {
	q := query{table: store.TablePages, limit: 1}.
		eq("slug", slug).
		eq("language", language).
		eq("status", string(models.PagePublished))

	var rows []models.Page
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("page %s (%s): %w", slug, language, store.ErrNotFound)
	}
	return &rows[0], nil
}

// Navigation returns the active items of a menu ordered by position.
func (c *Client) Navigation(ctx context.Context, menuKey, language string) ([]models.NavItem, error) {
	q := query{table: store.TableNavigation, order: "order_position"}.
		eq("menu_key", menuKey).
		eq("language", language).
		eq("is_active", "true")

	var rows []models.NavItem
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

type settingRow struct {
	Name  string          `json:"setting_name"`
	Value json.RawMessage `json:"setting_value"`
}

// SiteSettings returns every setting. Non-string values are kept as their
// JSON text.
func (c *Client) SiteSettings(ctx context.Context) ([]models.SiteSetting, error) {
	var rows []settingRow
	if err := c.get(ctx, query{table: store.TableSettings}, &rows); err != nil {
		return nil, err
	}
	settings := make([]models.SiteSetting, 0, len(rows))
	for _, r := range rows {
		var value string
		if err := json.Unmarshal(r.Value, &value); err != nil {
			value = string(r.Value)
		}
		settings = append(settings, models.SiteSetting{Name: r.Name, Value: value})
	}
	return settings, nil
}

// PageSEO returns SEO metadata for a page slug and language.
func (c *Client) PageSEO(ctx context.Context, slug, language string) (*models.SEOMeta, error) {
	q := query{table: store.TableSEO, limit: 1}.
		eq("page_slug", slug).
		eq("language", language)

	var rows []models.SEOMeta
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("seo %s (%s): %w", slug, language, store.ErrNotFound)
	}
	return &rows[0], nil
}
