package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/store"
)

// fakeSource implements content.Source for testing.
type fakeSource struct {
	pages    map[string]*models.Page
	nav      []models.NavItem
	settings []models.SiteSetting
	seo      map[string]*models.SEOMeta
}

func (f *fakeSource) PageBySlug(_ context.Context, slug, _ string) (*models.Page, error) {
	if p, ok := f.pages[slug]; ok {
		return p, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeSource) Navigation(_ context.Context, _, _ string) ([]models.NavItem, error) {
	return f.nav, nil
}

func (f *fakeSource) SiteSettings(_ context.Context) ([]models.SiteSetting, error) {
	return f.settings, nil
}

func (f *fakeSource) PageSEO(_ context.Context, slug, _ string) (*models.SEOMeta, error) {
	if m, ok := f.seo[slug]; ok {
		return m, nil
	}
	return nil, store.ErrNotFound
}

func strPtr(s string) *string { return &s }

func newFakeSource() *fakeSource {
	return &fakeSource{
		pages: map[string]*models.Page{
			"home": {Slug: "home", Language: "en", Title: "Home", Status: models.PagePublished,
				Content: models.PageContent{Headline: "Welcome to IntelliCloud"}},
		},
		nav: []models.NavItem{
			{ID: "a", Label: "Services", URL: "/services", OrderPosition: 1},
			{ID: "b", Label: "Cloud", URL: "/services/cloud", ParentID: strPtr("a")},
			{ID: "c", Label: "Home", URL: "/", OrderPosition: 0},
		},
		settings: []models.SiteSetting{
			{Name: "site_name", Value: "IntelliCloud"},
			{Name: "contact_email", Value: "hello@example.com"},
		},
		seo: map[string]*models.SEOMeta{
			"home": {PageSlug: "home", Language: "en", MetaTitle: "IntelliCloud | Home"},
		},
	}
}

func newTestServer(src content.Source) (*Server, *content.Loader) {
	logger, _ := test.NewNullLogger()
	loader := content.New(src, nil, content.WithLogger(logger))
	return New(loader, logger, "test"), loader
}

func sendAndReceive(t *testing.T, srv *Server, req Request) Response {
	t.Helper()
	line, err := json.Marshal(req)
	if err != nil {
		t.Fatal(err)
	}
	line = append(line, '\n')

	var out bytes.Buffer
	if err := srv.Run(context.Background(), bytes.NewReader(line), &out); err != nil {
		t.Fatal(err)
	}

	var resp Response
	if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, out.String())
	}
	return resp
}

func callTool(t *testing.T, srv *Server, name, args string) ToolCallResult {
	t.Helper()
	p := ToolCallParams{Name: name}
	if args != "" {
		p.Arguments = json.RawMessage(args)
	}
	params, _ := json.Marshal(p)
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`3`),
		Method:  "tools/call",
		Params:  params,
	})
	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolCallResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 {
		t.Fatal("expected content")
	}
	return result
}

func TestInitialize(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`1`),
		Method:  "initialize",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result InitializeResult
	json.Unmarshal(data, &result)

	if result.ProtocolVersion != "2024-11-05" {
		t.Errorf("protocol version = %s, want 2024-11-05", result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "icweb" {
		t.Errorf("server name = %s, want icweb", result.ServerInfo.Name)
	}
}

func TestToolsList(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`2`),
		Method:  "tools/list",
	})

	if resp.Error != nil {
		t.Fatalf("unexpected error: %v", resp.Error)
	}

	data, _ := json.Marshal(resp.Result)
	var result ToolsListResult
	json.Unmarshal(data, &result)

	if len(result.Tools) != len(toolHandlers) {
		t.Errorf("got %d tools, want %d", len(result.Tools), len(toolHandlers))
	}
	for _, tool := range result.Tools {
		if _, ok := toolHandlers[tool.Name]; !ok {
			t.Errorf("tool %s has no handler", tool.Name)
		}
	}
}

func TestToolCallPage(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	result := callTool(t, srv, "site_page", `{"slug":"home"}`)
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", result.Content[0].Text)
	}
	if !strings.Contains(result.Content[0].Text, "Welcome to IntelliCloud") {
		t.Errorf("expected headline in output, got: %s", result.Content[0].Text)
	}
}

func TestToolCallPageUnavailable(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	result := callTool(t, srv, "site_page", `{"slug":"missing"}`)
	if !result.IsError {
		t.Error("expected isError=true for a missing page")
	}
	if !strings.Contains(result.Content[0].Text, "not available") {
		t.Errorf("unexpected output: %s", result.Content[0].Text)
	}
}

func TestToolCallPageMissingSlug(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	result := callTool(t, srv, "site_page", `{}`)
	if !result.IsError {
		t.Error("expected isError=true for missing slug")
	}
}

func TestToolCallNavigation(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	text := callTool(t, srv, "site_navigation", "").Content[0].Text
	want := "- Home (/)\n- Services (/services)\n  - Cloud (/services/cloud)\n"
	if !strings.HasPrefix(text, want) {
		t.Errorf("navigation output = %q, want prefix %q", text, want)
	}
	if !strings.Contains(text, "3 items") {
		t.Errorf("expected item count, got: %s", text)
	}
}

func TestToolCallNavigationUnavailable(t *testing.T) {
	src := newFakeSource()
	src.nav = nil
	srv, _ := newTestServer(src)

	result := callTool(t, srv, "site_navigation", `{"menu":"footer"}`)
	if !result.IsError {
		t.Error("expected isError=true for an empty menu")
	}
}

func TestToolCallSettings(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	text := callTool(t, srv, "site_settings", "").Content[0].Text
	contact := strings.Index(text, "contact_email")
	name := strings.Index(text, "site_name")
	if contact < 0 || name < 0 || contact > name {
		t.Errorf("expected sorted settings, got: %s", text)
	}
}

func TestToolCallSEO(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	text := callTool(t, srv, "site_seo", `{"slug":"home","lang":"en"}`).Content[0].Text
	if !strings.Contains(text, "IntelliCloud | Home") {
		t.Errorf("expected meta title, got: %s", text)
	}
	if strings.Contains(text, "Robots") {
		t.Errorf("empty fields should be omitted, got: %s", text)
	}
}

func TestToolCallCacheStatsAndClear(t *testing.T) {
	srv, loader := newTestServer(newFakeSource())

	callTool(t, srv, "site_page", `{"slug":"home"}`)
	callTool(t, srv, "site_page", `{"slug":"home"}`)

	text := callTool(t, srv, "site_cache_stats", "").Content[0].Text
	if !strings.Contains(text, "50.0%") {
		t.Errorf("unexpected cache stats output: %s", text)
	}

	callTool(t, srv, "site_cache_clear", `{"key":"page:home:en"}`)
	if got := loader.Stats().Entries; got != 0 {
		t.Errorf("entries after key clear = %d, want 0", got)
	}

	callTool(t, srv, "site_settings", "")
	callTool(t, srv, "site_cache_clear", "")
	if got := loader.Stats().Entries; got != 0 {
		t.Errorf("entries after clear = %d, want 0", got)
	}
}

func TestUnknownTool(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	result := callTool(t, srv, "site_unknown", "")
	if !result.IsError {
		t.Error("expected isError=true for unknown tool")
	}
}

func TestNotificationNoResponse(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())

	line, _ := json.Marshal(Request{
		JSONRPC: "2.0",
		Method:  "notifications/initialized",
	})
	line = append(line, '\n')

	var out bytes.Buffer
	_ = srv.Run(context.Background(), bytes.NewReader(line), &out)

	if out.Len() != 0 {
		t.Errorf("expected no output for notification, got: %s", out.String())
	}
}

func TestUnknownMethod(t *testing.T) {
	srv, _ := newTestServer(newFakeSource())
	resp := sendAndReceive(t, srv, Request{
		JSONRPC: "2.0",
		ID:      json.RawMessage(`9`),
		Method:  "unknown/method",
	})

	if resp.Error == nil {
		t.Fatal("expected error for unknown method")
	}
	if resp.Error.Code != CodeMethodNotFound {
		t.Errorf("error code = %d, want %d", resp.Error.Code, CodeMethodNotFound)
	}
}
