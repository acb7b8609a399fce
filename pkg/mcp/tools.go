package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/intellicloud/icweb/pkg/content"
)

// Tool argument structs.

type pageArgs struct {
	Slug string `json:"slug"`
	Lang string `json:"lang"`
}

type navigationArgs struct {
	Menu string `json:"menu"`
	Lang string `json:"lang"`
}

type cacheClearArgs struct {
	Key string `json:"key"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) ToolCallResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"site_page":        handlePage,
	"site_navigation":  handleNavigation,
	"site_settings":    handleSettings,
	"site_seo":         handleSEO,
	"site_cache_stats": handleCacheStats,
	"site_cache_clear": handleCacheClear,
}

var langProperty = map[string]any{
	"type":        "string",
	"description": "Language code (optional, defaults to the configured language)",
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []ToolDefinition{
	{
		Name:        "site_page",
		Description: "Show a published page by slug.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"slug"},
			"properties": map[string]any{
				"slug": map[string]any{
					"type":        "string",
					"description": "Page slug, e.g. services--cloud",
				},
				"lang": langProperty,
			},
		},
	},
	{
		Name:        "site_navigation",
		Description: "Show a navigation menu as an indented tree.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"menu": map[string]any{
					"type":        "string",
					"description": "Menu key (optional, defaults to main)",
				},
				"lang": langProperty,
			},
		},
	},
	{
		Name:        "site_settings",
		Description: "List the global site settings.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "site_seo",
		Description: "Show SEO metadata for a page.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"slug"},
			"properties": map[string]any{
				"slug": map[string]any{
					"type":        "string",
					"description": "Page slug",
				},
				"lang": langProperty,
			},
		},
	},
	{
		Name:        "site_cache_stats",
		Description: "Show content cache statistics (entries, hits, misses, evictions, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "site_cache_clear",
		Description: "Clear the content cache, or a single key such as page:home:en.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"key": map[string]any{
					"type":        "string",
					"description": "Cache key to remove (optional, omit to clear everything)",
				},
			},
		},
	},
}

func textResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
	}
}

func errorResult(text string) ToolCallResult {
	return ToolCallResult{
		Content: []ContentBlock{{Type: "text", Text: text}},
		IsError: true,
	}
}

func decodeArgs(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, v)
}

func handlePage(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args pageArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Slug == "" {
		return errorResult("slug is required")
	}
	page := s.loader.LoadPageBySlug(ctx, args.Slug, args.Lang)
	if page == nil {
		return errorResult(fmt.Sprintf("Page %q is not available.", args.Slug))
	}
	return textResult(formatPage(page))
}

func handleNavigation(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args navigationArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Menu == "" {
		args.Menu = content.DefaultMenu
	}
	roots := s.loader.LoadNavigation(ctx, args.Menu, args.Lang)
	if roots == nil {
		return errorResult(fmt.Sprintf("Navigation %q is not available.", args.Menu))
	}
	return textResult(formatNavigation(roots))
}

func handleSettings(ctx context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	settings := s.loader.LoadSiteSettings(ctx)
	if settings == nil {
		return errorResult("Site settings are not available.")
	}
	return textResult(formatSettings(settings))
}

func handleSEO(ctx context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args pageArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Slug == "" {
		return errorResult("slug is required")
	}
	meta := s.loader.LoadPageSEO(ctx, args.Slug, args.Lang)
	if meta == nil {
		return errorResult(fmt.Sprintf("SEO metadata for %q is not available.", args.Slug))
	}
	return textResult(formatSEO(meta))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) ToolCallResult {
	return textResult(formatCacheStats(s.loader.Stats()))
}

func handleCacheClear(_ context.Context, s *Server, rawArgs json.RawMessage) ToolCallResult {
	var args cacheClearArgs
	if err := decodeArgs(rawArgs, &args); err != nil {
		return errorResult("Invalid arguments: " + err.Error())
	}
	if args.Key != "" {
		s.loader.ClearCacheKey(args.Key)
		return textResult(fmt.Sprintf("Cleared cache key %s.", args.Key))
	}
	s.loader.ClearCache()
	return textResult("Cleared content cache.")
}
