// Package sqlite implements the content backend on a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/store"
)

// Store reads and writes site content in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

const createTables = `
CREATE TABLE IF NOT EXISTS ic_web_pages (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT 'en',
	title TEXT NOT NULL DEFAULT '',
	description TEXT NOT NULL DEFAULT '',
	content TEXT NOT NULL DEFAULT '{}',
	status TEXT NOT NULL DEFAULT 'draft',
	created_by TEXT NOT NULL DEFAULT '',
	updated_by TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	UNIQUE (slug, language)
);

CREATE TABLE IF NOT EXISTS ic_web_navigation (
	id TEXT PRIMARY KEY,
	menu_key TEXT NOT NULL DEFAULT 'main',
	language TEXT NOT NULL DEFAULT 'en',
	parent_id TEXT,
	label TEXT NOT NULL,
	url TEXT NOT NULL DEFAULT '',
	order_position INTEGER NOT NULL DEFAULT 0,
	icon TEXT NOT NULL DEFAULT '',
	is_external INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1
);
CREATE INDEX IF NOT EXISTS idx_nav_menu ON ic_web_navigation(menu_key, language, order_position);

CREATE TABLE IF NOT EXISTS ic_web_site_settings (
	setting_name TEXT PRIMARY KEY,
	setting_value TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS ic_web_seo_meta (
	id TEXT PRIMARY KEY,
	page_slug TEXT NOT NULL,
	language TEXT NOT NULL DEFAULT 'en',
	meta_title TEXT NOT NULL DEFAULT '',
	meta_description TEXT NOT NULL DEFAULT '',
	keywords TEXT NOT NULL DEFAULT '',
	og_title TEXT NOT NULL DEFAULT '',
	og_description TEXT NOT NULL DEFAULT '',
	og_image TEXT NOT NULL DEFAULT '',
	canonical_url TEXT NOT NULL DEFAULT '',
	robots TEXT NOT NULL DEFAULT '',
	UNIQUE (page_slug, language)
);
`

// New opens the database at dbPath and runs auto-migration.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open content db: %w", err)
	}

	if _, err := db.Exec(createTables); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate content db: %w", err)
	}

	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

// conflict marks unique-constraint violations with store.ErrConflict.
func conflict(err error) error {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %w", store.ErrConflict, err)
		}
	}
	return err
}

// Pages

const pageColumns = `id, slug, language, title, description, content, status, created_by, updated_by, created_at, updated_at`

func scanPage(row scanner) (*models.Page, error) {
	var p models.Page
	var content string
	var status string
	if err := row.Scan(&p.ID, &p.Slug, &p.Language, &p.Title, &p.Description, &content, &status,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	p.Status = models.PageStatus(status)
	if content != "" {
		if err := json.Unmarshal([]byte(content), &p.Content); err != nil {
			return nil, fmt.Errorf("decode content of page %s: %w", p.Slug, err)
		}
	}
	return &p, nil
}

// PageBySlug returns the published page with the given slug and language.
func (s *Store) PageBySlug(ctx context.Context, slug, language string) (*models.Page, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM ic_web_pages WHERE slug = ? AND language = ? AND status = ? LIMIT 1`,
		slug, language, string(models.PagePublished),
	)
	p, err := scanPage(row)
	if err != nil {
		return nil, fmt.Errorf("page %s (%s): %w", slug, language, notFound(err))
	}
	return p, nil
}

// ListPages returns every page in a language regardless of status, newest first.
func (s *Store) ListPages(ctx context.Context, language string) ([]models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+pageColumns+` FROM ic_web_pages WHERE language = ? ORDER BY created_at DESC, slug`,
		language,
	)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	defer rows.Close()

	var pages []models.Page
	for rows.Next() {
		p, err := scanPage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}
		pages = append(pages, *p)
	}
	return pages, rows.Err()
}

// PageByID returns a page by id regardless of status.
func (s *Store) PageByID(ctx context.Context, id string) (*models.Page, error) {
	p, err := scanPage(s.db.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM ic_web_pages WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", id, notFound(err))
	}
	return p, nil
}

// UpsertPage writes a page. With an ID the row with that id is inserted or
// updated, slug and language included; without one the row with the same
// slug and language is. p is refreshed from the stored row.
func (s *Store) UpsertPage(ctx context.Context, p *models.Page) error {
	return s.upsertPage(ctx, s.db, p)
}

// UpsertPages writes pages in a single transaction; either all are stored
// or none are.
func (s *Store) UpsertPages(ctx context.Context, pages []models.Page) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range pages {
			if err := s.upsertPage(ctx, tx, &pages[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

const pageUpdate = `
			title = excluded.title,
			description = excluded.description,
			content = excluded.content,
			status = excluded.status,
			updated_by = excluded.updated_by,
			updated_at = excluded.updated_at`

func (s *Store) upsertPage(ctx context.Context, ex execer, p *models.Page) error {
	if p.Slug == "" {
		return fmt.Errorf("upsert page: slug is required")
	}
	if p.Language == "" {
		p.Language = content.DefaultLanguage
	}
	if p.Status == "" {
		p.Status = models.PageDraft
	}
	now := s.now()
	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	body, err := json.Marshal(p.Content)
	if err != nil {
		return fmt.Errorf("encode page content: %w", err)
	}

	id, target, set := p.ID, "slug, language", pageUpdate
	if id != "" {
		target, set = "id", `
			slug = excluded.slug,
			language = excluded.language,`+pageUpdate
	} else {
		id = uuid.NewString()
	}

	_, err = ex.ExecContext(ctx,
		`INSERT INTO ic_web_pages (`+pageColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(`+target+`) DO UPDATE SET`+set,
		id, p.Slug, p.Language, p.Title, p.Description, string(body), string(p.Status),
		p.CreatedBy, p.UpdatedBy, createdAt, now,
	)
	if err != nil {
		return fmt.Errorf("upsert page %s: %w", p.Slug, conflict(err))
	}

	stored, err := scanPage(ex.QueryRowContext(ctx,
		`SELECT `+pageColumns+` FROM ic_web_pages WHERE slug = ? AND language = ?`, p.Slug, p.Language))
	if err != nil {
		return fmt.Errorf("reload page %s: %w", p.Slug, err)
	}
	*p = *stored
	return nil
}

// DeletePage removes a page in one language.
func (s *Store) DeletePage(ctx context.Context, slug, language string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM ic_web_pages WHERE slug = ? AND language = ?`, slug, language)
	if err != nil {
		return fmt.Errorf("delete page %s: %w", slug, err)
	}
	return requireAffected(res, "page "+slug)
}

// Navigation

const navColumns = `id, menu_key, language, parent_id, label, url, order_position, icon, is_external, is_active`

func scanNavItem(row scanner) (models.NavItem, error) {
	var n models.NavItem
	var parent sql.NullString
	if err := row.Scan(&n.ID, &n.MenuKey, &n.Language, &parent, &n.Label, &n.URL,
		&n.OrderPosition, &n.Icon, &n.IsExternal, &n.IsActive); err != nil {
		return n, err
	}
	if parent.Valid && parent.String != "" {
		p := parent.String
		n.ParentID = &p
	}
	return n, nil
}

func (s *Store) queryNav(ctx context.Context, query string, args ...any) ([]models.NavItem, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query navigation: %w", err)
	}
	defer rows.Close()

	var items []models.NavItem
	for rows.Next() {
		n, err := scanNavItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan navigation: %w", err)
		}
		items = append(items, n)
	}
	return items, rows.Err()
}

// Navigation returns the active items of a menu ordered by position.
func (s *Store) Navigation(ctx context.Context, menuKey, language string) ([]models.NavItem, error) {
	return s.queryNav(ctx,
		`SELECT `+navColumns+` FROM ic_web_navigation
		 WHERE menu_key = ? AND language = ? AND is_active = 1
		 ORDER BY order_position ASC, rowid ASC`,
		menuKey, language,
	)
}

// AllNavigation returns every item of a menu, inactive ones included.
func (s *Store) AllNavigation(ctx context.Context, menuKey, language string) ([]models.NavItem, error) {
	return s.queryNav(ctx,
		`SELECT `+navColumns+` FROM ic_web_navigation
		 WHERE menu_key = ? AND language = ?
		 ORDER BY order_position ASC, rowid ASC`,
		menuKey, language,
	)
}

// NavItem returns a single navigation item by id.
func (s *Store) NavItem(ctx context.Context, id string) (models.NavItem, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+navColumns+` FROM ic_web_navigation WHERE id = ?`, id)
	n, err := scanNavItem(row)
	if err != nil {
		return n, fmt.Errorf("navigation item %s: %w", id, notFound(err))
	}
	return n, nil
}

// UpsertNavItem inserts or replaces a navigation item by id. A missing ID
// is generated.
func (s *Store) UpsertNavItem(ctx context.Context, n *models.NavItem) error {
	return upsertNavItem(ctx, s.db, n)
}

// UpsertNavItems writes items in a single transaction.
func (s *Store) UpsertNavItems(ctx context.Context, items []models.NavItem) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for i := range items {
			if err := upsertNavItem(ctx, tx, &items[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func upsertNavItem(ctx context.Context, ex execer, n *models.NavItem) error {
	if n.Label == "" {
		return fmt.Errorf("upsert navigation item: label is required")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.MenuKey == "" {
		n.MenuKey = content.DefaultMenu
	}
	if n.Language == "" {
		n.Language = content.DefaultLanguage
	}
	var parent any
	if n.HasParent() {
		parent = *n.ParentID
	}

	_, err := ex.ExecContext(ctx,
		`INSERT INTO ic_web_navigation (`+navColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			menu_key = excluded.menu_key,
			language = excluded.language,
			parent_id = excluded.parent_id,
			label = excluded.label,
			url = excluded.url,
			order_position = excluded.order_position,
			icon = excluded.icon,
			is_external = excluded.is_external,
			is_active = excluded.is_active`,
		n.ID, n.MenuKey, n.Language, parent, n.Label, n.URL, n.OrderPosition, n.Icon, n.IsExternal, n.IsActive,
	)
	if err != nil {
		return fmt.Errorf("upsert navigation item %s: %w", n.ID, err)
	}
	return nil
}

// DeleteNavItem removes a navigation item and returns the deleted row.
// Children keep their parent reference and become orphans.
func (s *Store) DeleteNavItem(ctx context.Context, id string) (models.NavItem, error) {
	n, err := s.NavItem(ctx, id)
	if err != nil {
		return n, err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ic_web_navigation WHERE id = ?`, id); err != nil {
		return n, fmt.Errorf("delete navigation item %s: %w", id, err)
	}
	return n, nil
}

// Settings

// SiteSettings returns every setting ordered by name.
func (s *Store) SiteSettings(ctx context.Context) ([]models.SiteSetting, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT setting_name, setting_value FROM ic_web_site_settings ORDER BY setting_name`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	var settings []models.SiteSetting
	for rows.Next() {
		var st models.SiteSetting
		if err := rows.Scan(&st.Name, &st.Value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		settings = append(settings, st)
	}
	return settings, rows.Err()
}

// SetSetting creates or updates a setting.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	if name == "" {
		return fmt.Errorf("set setting: name is required")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ic_web_site_settings (setting_name, setting_value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(setting_name) DO UPDATE SET setting_value = excluded.setting_value, updated_at = excluded.updated_at`,
		name, value, s.now(),
	)
	if err != nil {
		return fmt.Errorf("set setting %s: %w", name, err)
	}
	return nil
}

// DeleteSetting removes a setting.
func (s *Store) DeleteSetting(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM ic_web_site_settings WHERE setting_name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete setting %s: %w", name, err)
	}
	return requireAffected(res, "setting "+name)
}

// SEO metadata

const seoColumns = `id, page_slug, language, meta_title, meta_description, keywords,
			og_title, og_description, og_image, canonical_url, robots`

func scanSEO(row scanner) (*models.SEOMeta, error) {
	var m models.SEOMeta
	if err := row.Scan(&m.ID, &m.PageSlug, &m.Language, &m.MetaTitle, &m.MetaDescription, &m.Keywords,
		&m.OGTitle, &m.OGDescription, &m.OGImage, &m.CanonicalURL, &m.Robots); err != nil {
		return nil, err
	}
	return &m, nil
}

// PageSEO returns SEO metadata for a page slug and language.
func (s *Store) PageSEO(ctx context.Context, slug, language string) (*models.SEOMeta, error) {
	m, err := scanSEO(s.db.QueryRowContext(ctx,
		`SELECT `+seoColumns+` FROM ic_web_seo_meta WHERE page_slug = ? AND language = ? LIMIT 1`,
		slug, language))
	if err != nil {
		return nil, fmt.Errorf("seo %s (%s): %w", slug, language, notFound(err))
	}
	return m, nil
}

// SEOByID returns SEO metadata by id.
func (s *Store) SEOByID(ctx context.Context, id string) (*models.SEOMeta, error) {
	m, err := scanSEO(s.db.QueryRowContext(ctx,
		`SELECT `+seoColumns+` FROM ic_web_seo_meta WHERE id = ?`, id))
	if err != nil {
		return nil, fmt.Errorf("seo %s: %w", id, notFound(err))
	}
	return m, nil
}

const seoUpdate = `
			meta_title = excluded.meta_title,
			meta_description = excluded.meta_description,
			keywords = excluded.keywords,
			og_title = excluded.og_title,
			og_description = excluded.og_description,
			og_image = excluded.og_image,
			canonical_url = excluded.canonical_url,
			robots = excluded.robots`

// UpsertSEO writes SEO metadata. With an ID the row with that id is
// inserted or updated, page slug and language included; without one the
// row for the same page slug and language is. m is refreshed from the
// stored row.
func (s *Store) UpsertSEO(ctx context.Context, m *models.SEOMeta) error {
	if m.PageSlug == "" {
		return fmt.Errorf("upsert seo: page_slug is required")
	}
	if m.Language == "" {
		m.Language = content.DefaultLanguage
	}

	id, target, set := m.ID, "page_slug, language", seoUpdate
	if id != "" {
		target, set = "id", `
			page_slug = excluded.page_slug,
			language = excluded.language,`+seoUpdate
	} else {
		id = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ic_web_seo_meta (`+seoColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(`+target+`) DO UPDATE SET`+set,
		id, m.PageSlug, m.Language, m.MetaTitle, m.MetaDescription, m.Keywords,
		m.OGTitle, m.OGDescription, m.OGImage, m.CanonicalURL, m.Robots,
	)
	if err != nil {
		return fmt.Errorf("upsert seo %s: %w", m.PageSlug, conflict(err))
	}

	stored, err := s.PageSEO(ctx, m.PageSlug, m.Language)
	if err != nil {
		return fmt.Errorf("reload seo: %w", err)
	}
	*m = *stored
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return nil
}
