package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intellicloud/icweb/pkg/store"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "anon-key", 5*time.Second)
	require.NoError(t, err)
	return c
}

func TestPageBySlugQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/ic_web_pages", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.cloud-engineering", q.Get("slug"))
		assert.Equal(t, "eq.en", q.Get("language"))
		assert.Equal(t, "eq.published", q.Get("status"))
		assert.Equal(t, "1", q.Get("limit"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))

		w.Write([]byte(`[{"id":"p1","slug":"cloud-engineering","language":"en","title":"Cloud",
			"content":{"headline":"Scale up","call_to_action":"Start"},"status":"published",
			"created_at":"2025-03-01T10:00:00.123456+00:00","updated_at":"2025-03-02T10:00:00+00:00"}]`))
	})

	p, err := c.PageBySlug(context.Background(), "cloud-engineering", "en")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "Scale up", p.Content.Headline)
	assert.Equal(t, 2025, p.CreatedAt.Year())
}

func TestPageBySlugEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})

	_, err := c.PageBySlug(context.Background(), "missing-page", "en")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNavigationQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/ic_web_navigation", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "eq.main", q.Get("menu_key"))
		assert.Equal(t, "eq.true", q.Get("is_active"))
		assert.Equal(t, "order_position.asc", q.Get("order"))
		assert.Empty(t, q.Get("limit"))

		w.Write([]byte(`[
			{"id":"a","menu_key":"main","language":"en","parent_id":null,"label":"Home","url":"/","order_position":0,"is_active":true},
			{"id":"b","menu_key":"main","language":"en","parent_id":"a","label":"Sub","url":"/sub","order_position":1,"is_active":true}
		]`))
	})

	items, err := c.Navigation(context.Background(), "main", "en")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Nil(t, items[0].ParentID)
	require.NotNil(t, items[1].ParentID)
	assert.Equal(t, "a", *items[1].ParentID)
}

func TestSiteSettingsValues(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/ic_web_site_settings", r.URL.Path)
		w.Write([]byte(`[
			{"setting_name":"site_name","setting_value":"IntelliCloud"},
			{"setting_name":"social","setting_value":{"x":"@ic"}}
		]`))
	})

	settings, err := c.SiteSettings(context.Background())
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, "IntelliCloud", settings[0].Value)
	assert.JSONEq(t, `{"x":"@ic"}`, settings[1].Value)
}

func TestErrorStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message":"JWT expired"}`))
	})

	_, err := c.PageSEO(context.Background(), "home", "en")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT expired")
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New("not a url", "", 0)
	assert.Error(t, err)
}
