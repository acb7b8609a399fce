// Package content serves pages, menus, settings and SEO metadata through
// the TTL cache, fetching from a backend Source on a miss.
package content

import (
	"context"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/intellicloud/icweb/pkg/cache"
	"github.com/intellicloud/icweb/pkg/metrics"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/navtree"
	"github.com/intellicloud/icweb/pkg/store"
)

const (
	// DefaultLanguage is used when a caller passes an empty language.
	DefaultLanguage = "en"
	// DefaultMenu is used when a caller passes an empty menu key.
	DefaultMenu = "main"
)

// Source is the backend the loader fetches from on a cache miss.
// Implementations return store.ErrNotFound (possibly wrapped) when no row
// matches.
type Source interface {
	// PageBySlug returns the published page for slug and language.
	PageBySlug(ctx context.Context, slug, language string) (*models.Page, error)
	// Navigation returns the active items of a menu ordered by position.
	Navigation(ctx context.Context, menuKey, language string) ([]models.NavItem, error)
	// SiteSettings returns every site setting.
	SiteSettings(ctx context.Context) ([]models.SiteSetting, error)
	// PageSEO returns SEO metadata for a page.
	PageSEO(ctx context.Context, slug, language string) (*models.SEOMeta, error)
}

// Loader fetches content through the cache. Every Load method returns nil
// when the content is unavailable; callers keep their static fallback.
// Values handed out are shared with the cache and must not be modified.
type Loader struct {
	src      Source
	cache    *cache.Cache
	log      logrus.FieldLogger
	language string
	group    singleflight.Group

	mu       sync.Mutex
	inflight map[string]int // running fetches per key
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger used for fetch diagnostics.
func WithLogger(l logrus.FieldLogger) Option {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// WithDefaultLanguage sets the language used when a caller passes none.
func WithDefaultLanguage(lang string) Option {
	return func(ld *Loader) {
		if lang != "" {
			ld.language = lang
		}
	}
}

// New creates a Loader over src. A nil cache gets a fresh one with the
// default TTL.
func New(src Source, c *cache.Cache, opts ...Option) *Loader {
	if c == nil {
		c = cache.New()
	}
	l := &Loader{
		src:      src,
		cache:    c,
		log:      logrus.StandardLogger(),
		language: DefaultLanguage,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Cache returns the cache backing the loader.
func (l *Loader) Cache() *cache.Cache {
	return l.cache
}

func (l *Loader) lang(language string) string {
	if language == "" {
		return l.language
	}
	return language
}

// load implements the shared protocol: cache hit, else one fetch per key
// at a time, then store. fetch returns (nil, nil) for an empty result.
// The returned bool reports a cache hit. A fetch overtaken by a clear of
// its key is handed to its callers but not stored.
func (l *Loader) load(ctx context.Context, kind, key string, fetch func(context.Context) (any, error)) (any, bool) {
	if v, ok := l.cache.Get(key); ok {
		return v, true
	}

	v, _, _ := l.group.Do(key, func() (any, error) {
		l.track(key, 1)
		defer l.track(key, -1)
		gen := l.cache.Generation(key)
		fields := logrus.Fields{"kind": kind, "key": key}

		v, err := fetch(ctx)
		switch {
		case errors.Is(err, store.ErrNotFound), err == nil && v == nil:
			metrics.Fetches.WithLabelValues(kind, "empty").Inc()
			l.log.WithFields(fields).Warn("content not found")
			return nil, nil
		case err != nil:
			metrics.Fetches.WithLabelValues(kind, "error").Inc()
			l.log.WithFields(fields).WithError(err).Error("content fetch failed")
			return nil, err
		}

		metrics.Fetches.WithLabelValues(kind, "ok").Inc()
		if !l.cache.SetIfGeneration(key, v, gen) {
			l.log.WithFields(fields).Debug("cache cleared during fetch; result not stored")
		}
		return v, nil
	})
	return v, false
}

// LoadPageBySlug returns the published page for slug, or nil.
func (l *Loader) LoadPageBySlug(ctx context.Context, slug, language string) *models.Page {
	p, _ := l.PageBySlug(ctx, slug, language)
	return p
}

// PageBySlug is LoadPageBySlug that also reports whether the cache served it.
func (l *Loader) PageBySlug(ctx context.Context, slug, language string) (*models.Page, bool) {
	language = l.lang(language)
	v, hit := l.load(ctx, "page", cache.PageKey(slug, language), func(ctx context.Context) (any, error) {
		p, err := l.src.PageBySlug(ctx, slug, language)
		if err != nil || p == nil {
			return nil, err
		}
		return p, nil
	})
	p, _ := v.(*models.Page)
	return p, hit
}

// LoadNavigation returns the menu tree for menuKey, or nil when the menu
// is unavailable or has no active items.
func (l *Loader) LoadNavigation(ctx context.Context, menuKey, language string) []*models.NavNode {
	nav, _ := l.Navigation(ctx, menuKey, language)
	return nav
}

// Navigation is LoadNavigation that also reports whether the cache served it.
func (l *Loader) Navigation(ctx context.Context, menuKey, language string) ([]*models.NavNode, bool) {
	if menuKey == "" {
		menuKey = DefaultMenu
	}
	language = l.lang(language)
	v, hit := l.load(ctx, "navigation", cache.NavKey(menuKey, language), func(ctx context.Context) (any, error) {
		items, err := l.src.Navigation(ctx, menuKey, language)
		if err != nil || len(items) == 0 {
			return nil, err
		}
		roots, report := navtree.Build(items)
		l.reportTree(menuKey, language, report)
		return roots, nil
	})
	nav, _ := v.([]*models.NavNode)
	return nav, hit
}

func (l *Loader) reportTree(menuKey, language string, report navtree.Report) {
	if report.Clean() {
		return
	}
	fields := logrus.Fields{"menu": menuKey, "language": language}
	if n := len(report.Orphans); n > 0 {
		metrics.NavOrphans.WithLabelValues(menuKey).Add(float64(n))
		l.log.WithFields(fields).WithField("items", report.Orphans).
			Warnf("%d navigation items reference a missing parent; promoted to top level", n)
	}
	if n := len(report.Unreachable); n > 0 {
		metrics.NavUnreachable.WithLabelValues(menuKey).Add(float64(n))
		l.log.WithFields(fields).WithField("items", report.Unreachable).
			Errorf("%d navigation items are in a parent cycle and were left out of the menu", n)
	}
}

// LoadSiteSettings returns all settings keyed by name, or nil.
func (l *Loader) LoadSiteSettings(ctx context.Context) models.SiteSettings {
	s, _ := l.SiteSettings(ctx)
	return s
}

// SiteSettings is LoadSiteSettings that also reports whether the cache served it.
func (l *Loader) SiteSettings(ctx context.Context) (models.SiteSettings, bool) {
	v, hit := l.load(ctx, "settings", cache.SettingsKey, func(ctx context.Context) (any, error) {
		rows, err := l.src.SiteSettings(ctx)
		if err != nil || len(rows) == 0 {
			return nil, err
		}
		settings := make(models.SiteSettings, len(rows))
		for _, r := range rows {
			settings[r.Name] = r.Value
		}
		return settings, nil
	})
	s, _ := v.(models.SiteSettings)
	return s, hit
}

// LoadPageSEO returns SEO metadata for a page, or nil.
func (l *Loader) LoadPageSEO(ctx context.Context, slug, language string) *models.SEOMeta {
	m, _ := l.PageSEO(ctx, slug, language)
	return m
}

// PageSEO is LoadPageSEO that also reports whether the cache served it.
func (l *Loader) PageSEO(ctx context.Context, slug, language string) (*models.SEOMeta, bool) {
	language = l.lang(language)
	v, hit := l.load(ctx, "seo", cache.SEOKey(slug, language), func(ctx context.Context) (any, error) {
		m, err := l.src.PageSEO(ctx, slug, language)
		if err != nil || m == nil {
			return nil, err
		}
		return m, nil
	})
	m, _ := v.(*models.SEOMeta)
	return m, hit
}

// ClearCache drops every cached value so the next read refetches.
func (l *Loader) ClearCache() {
	l.cache.Clear()
	l.forgetAll()
	l.log.Info("content cache cleared")
}

// ClearCacheKey drops a single cached value.
func (l *Loader) ClearCacheKey(key string) {
	l.cache.ClearKey(key)
	l.group.Forget(key)
	l.log.WithField("key", key).Debug("content cache key cleared")
}

func (l *Loader) track(key string, delta int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.inflight == nil {
		l.inflight = make(map[string]int)
	}
	if l.inflight[key] += delta; l.inflight[key] <= 0 {
		delete(l.inflight, key)
	}
}

// forgetAll detaches every in-flight fetch so later callers start afresh.
func (l *Loader) forgetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key := range l.inflight {
		l.group.Forget(key)
	}
}

// Stats returns cache statistics.
func (l *Loader) Stats() models.CacheStats {
	return l.cache.Stats()
}
