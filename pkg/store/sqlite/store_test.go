package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "content_test.db")
	s, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestPageBySlugPublishedOnly(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPage(ctx, &models.Page{
		Slug: "cloud-engineering", Language: "en", Title: "Cloud Engineering",
		Content: models.PageContent{Headline: "Build on the cloud", CallToAction: "Talk to us"},
		Status:  models.PagePublished,
	}))
	require.NoError(t, s.UpsertPage(ctx, &models.Page{Slug: "draft-page", Title: "WIP"}))

	p, err := s.PageBySlug(ctx, "cloud-engineering", "en")
	require.NoError(t, err)
	assert.Equal(t, "Cloud Engineering", p.Title)
	assert.Equal(t, "Build on the cloud", p.Content.Headline)
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	_, err = s.PageBySlug(ctx, "draft-page", "en")
	assert.True(t, errors.Is(err, store.ErrNotFound), "drafts must not be served: %v", err)

	_, err = s.PageBySlug(ctx, "cloud-engineering", "de")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertPageUpdatesExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := &models.Page{Slug: "home", Title: "Home", Status: models.PagePublished}
	require.NoError(t, s.UpsertPage(ctx, first))
	second := &models.Page{Slug: "home", Title: "Welcome", Status: models.PagePublished}
	require.NoError(t, s.UpsertPage(ctx, second))
	assert.Equal(t, first.ID, second.ID, "the written page reports the stored id")
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	p, err := s.PageBySlug(ctx, "home", "en")
	require.NoError(t, err)
	assert.Equal(t, "Welcome", p.Title)
	assert.Equal(t, first.ID, p.ID, "conflicting upsert keeps the original id")

	pages, err := s.ListPages(ctx, "en")
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestUpsertPageRenameByID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p := &models.Page{Slug: "about", Title: "About", Status: models.PagePublished}
	require.NoError(t, s.UpsertPage(ctx, p))
	id := p.ID

	renamed := &models.Page{ID: id, Slug: "about-us", Language: "de", Title: "Über uns", Status: models.PagePublished}
	require.NoError(t, s.UpsertPage(ctx, renamed))
	assert.Equal(t, id, renamed.ID)

	_, err := s.PageBySlug(ctx, "about", "en")
	assert.ErrorIs(t, err, store.ErrNotFound)

	got, err := s.PageByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "about-us", got.Slug)
	assert.Equal(t, "de", got.Language)
	assert.Equal(t, "Über uns", got.Title)

	_, err = s.PageByID(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpsertPageSlugConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPage(ctx, &models.Page{Slug: "home"}))
	other := &models.Page{Slug: "pricing"}
	require.NoError(t, s.UpsertPage(ctx, other))

	err := s.UpsertPage(ctx, &models.Page{ID: other.ID, Slug: "home"})
	assert.ErrorIs(t, err, store.ErrConflict)

	p, err := s.PageByID(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, "pricing", p.Slug)
}

func TestDeletePage(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertPage(ctx, &models.Page{Slug: "about", Status: models.PagePublished}))
	require.NoError(t, s.DeletePage(ctx, "about", "en"))
	assert.ErrorIs(t, s.DeletePage(ctx, "about", "en"), store.ErrNotFound)
}

func TestNavigationFiltersAndOrders(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	items := []models.NavItem{
		{ID: "services", Label: "Services", URL: "/services", OrderPosition: 2, IsActive: true},
		{ID: "home", Label: "Home", URL: "/", OrderPosition: 1, IsActive: true},
		{ID: "cloud", ParentID: strPtr("services"), Label: "Cloud", OrderPosition: 0, IsActive: true},
		{ID: "hidden", Label: "Hidden", OrderPosition: 0, IsActive: false},
		{ID: "footer-legal", MenuKey: "footer", Label: "Legal", IsActive: true},
	}
	require.NoError(t, s.UpsertNavItems(ctx, items))

	got, err := s.Navigation(ctx, "main", "en")
	require.NoError(t, err)

	var ids []string
	for _, n := range got {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"cloud", "home", "services"}, ids)
	require.NotNil(t, got[0].ParentID)
	assert.Equal(t, "services", *got[0].ParentID)
	assert.Nil(t, got[1].ParentID)

	all, err := s.AllNavigation(ctx, "main", "en")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestDeleteNavItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	n := &models.NavItem{Label: "Contact", MenuKey: "footer", IsActive: true}
	require.NoError(t, s.UpsertNavItem(ctx, n))
	require.NotEmpty(t, n.ID)

	deleted, err := s.DeleteNavItem(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, "footer", deleted.MenuKey)

	_, err = s.DeleteNavItem(ctx, n.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSettings(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SetSetting(ctx, "site_name", "IntelliCloud"))
	require.NoError(t, s.SetSetting(ctx, "contact_email", "hello@example.com"))
	require.NoError(t, s.SetSetting(ctx, "site_name", "IntelliCloud Inc."))

	settings, err := s.SiteSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.SiteSetting{
		{Name: "contact_email", Value: "hello@example.com"},
		{Name: "site_name", Value: "IntelliCloud Inc."},
	}, settings)

	require.NoError(t, s.DeleteSetting(ctx, "contact_email"))
	assert.ErrorIs(t, s.DeleteSetting(ctx, "contact_email"), store.ErrNotFound)
	assert.Error(t, s.SetSetting(ctx, "", "x"))
}

func TestSEO(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.PageSEO(ctx, "home", "en")
	assert.ErrorIs(t, err, store.ErrNotFound)

	first := &models.SEOMeta{PageSlug: "home", MetaTitle: "Home | IntelliCloud"}
	require.NoError(t, s.UpsertSEO(ctx, first))
	second := &models.SEOMeta{PageSlug: "home", MetaTitle: "IntelliCloud", Robots: "index,follow"}
	require.NoError(t, s.UpsertSEO(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	m, err := s.PageSEO(ctx, "home", "en")
	require.NoError(t, err)
	assert.Equal(t, first.ID, m.ID)
	assert.Equal(t, "IntelliCloud", m.MetaTitle)
	assert.Equal(t, "index,follow", m.Robots)

	moved := &models.SEOMeta{ID: first.ID, PageSlug: "start", MetaTitle: "Start"}
	require.NoError(t, s.UpsertSEO(ctx, moved))
	_, err = s.PageSEO(ctx, "home", "en")
	assert.ErrorIs(t, err, store.ErrNotFound)

	m, err = s.SEOByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "start", m.PageSlug)
}

func TestUpsertPagesRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.UpsertPages(ctx, []models.Page{
		{Slug: "ok", Status: models.PagePublished},
		{Slug: ""},
	})
	require.Error(t, err)

	pages, err := s.ListPages(ctx, "en")
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestMigrationIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "content_test.db")

	s1, err := New(dbPath)
	require.NoError(t, err)
	_ = s1.Close()

	s2, err := New(dbPath)
	require.NoError(t, err, "second New() failed")
	_ = s2.Close()
}
