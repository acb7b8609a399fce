package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intellicloud/icweb/pkg/audit"
	"github.com/intellicloud/icweb/pkg/cache"
	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/models"
	"github.com/intellicloud/icweb/pkg/store"
)

func (s *Server) handleCacheClear(w http.ResponseWriter, r *http.Request) {
	if key := r.URL.Query().Get("key"); key != "" {
		s.loader.ClearCacheKey(key)
		s.audit(r, "clear cache", key, key)
		writeJSON(w, http.StatusOK, map[string]string{"cleared": key})
		return
	}
	s.loader.ClearCache()
	s.audit(r, "clear cache", "all")
	writeJSON(w, http.StatusOK, map[string]string{"cleared": "all"})
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.loader.Stats())
}

// writable answers 501 when the backend has no write side.
func (s *Server) writable(w http.ResponseWriter) bool {
	if s.admin == nil {
		writeJSONError(w, http.StatusNotImplemented, "backend does not support content writes")
		return false
	}
	return true
}

// writeFailed maps a store error to a response.
func (s *Server) writeFailed(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	case errors.Is(err, store.ErrConflict):
		writeJSONError(w, http.StatusConflict, op+": conflicts with an existing row")
		return
	}
	s.log.WithField("op", op).WithError(err).Error("admin write failed")
	writeJSONError(w, http.StatusInternalServerError, op+" failed")
}

// invalidate clears the given cache keys after a successful write to
// target and records the change.
func (s *Server) invalidate(r *http.Request, op, target string, keys ...string) {
	for _, k := range keys {
		s.loader.ClearCacheKey(k)
	}
	s.log.WithFields(logrus.Fields{"op": op, "target": target, "keys": keys}).Info("content updated")
	s.audit(r, op, target, keys...)
}

// audit records a change when an auditor is configured. A failed record is
// logged; the change itself already happened.
func (s *Server) audit(r *http.Request, op, target string, keys ...string) {
	if s.auditor == nil {
		return
	}
	entry := models.ChangeEntry{
		Operation:  op,
		Target:     target,
		CacheKeys:  keys,
		Actor:      audit.Actor(extractBearer(r)),
		RemoteAddr: r.RemoteAddr,
	}
	if err := s.auditor.Log(r.Context(), entry); err != nil {
		s.log.WithField("op", op).WithError(err).Warn("audit record failed")
	}
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	if s.auditor == nil {
		writeJSONError(w, http.StatusNotImplemented, "audit log is not enabled")
		return
	}
	q := r.URL.Query()
	opts := models.AuditQueryOpts{
		Operation: q.Get("op"),
		Target:    q.Get("target"),
	}
	if v := q.Get("since"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "since must be YYYY-MM-DD")
			return
		}
		opts.Since = t
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = n
	}
	entries, err := s.auditor.Query(r.Context(), opts)
	if err != nil {
		s.log.WithError(err).Error("audit query failed")
		writeJSONError(w, http.StatusInternalServerError, "audit query failed")
		return
	}
	if entries == nil {
		entries = []models.ChangeEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// handleListPages lists every page in a language, drafts included.
func (s *Server) handleListPages(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	pages, err := s.admin.ListPages(r.Context(), s.language(r))
	if err != nil {
		s.writeFailed(w, "list pages", err)
		return
	}
	if pages == nil {
		pages = []models.Page{}
	}
	writeJSON(w, http.StatusOK, pages)
}

func (s *Server) handlePutPage(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	var p models.Page
	if !decodeBody(w, r, &p) {
		return
	}
	if p.Slug == "" {
		writeJSONError(w, http.StatusBadRequest, "slug is required")
		return
	}
	if p.Language == "" {
		p.Language = s.cfg.DefaultLanguage
	}
	var keys []string
	if p.ID != "" {
		prev, err := s.admin.PageByID(r.Context(), p.ID)
		switch {
		case err == nil && (prev.Slug != p.Slug || prev.Language != p.Language):
			keys = append(keys, cache.PageKey(prev.Slug, prev.Language), cache.SEOKey(prev.Slug, prev.Language))
		case err != nil && !errors.Is(err, store.ErrNotFound):
			s.writeFailed(w, "upsert page", err)
			return
		}
	}
	if err := s.admin.UpsertPage(r.Context(), &p); err != nil {
		s.writeFailed(w, "upsert page", err)
		return
	}
	keys = append(keys, cache.PageKey(p.Slug, p.Language), cache.SEOKey(p.Slug, p.Language))
	s.invalidate(r, "upsert page", p.Slug+":"+p.Language, keys...)
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePage(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	slug, lang := r.PathValue("slug"), s.language(r)
	if err := s.admin.DeletePage(r.Context(), slug, lang); err != nil {
		s.writeFailed(w, "delete page", err)
		return
	}
	s.invalidate(r, "delete page", slug+":"+lang, cache.PageKey(slug, lang), cache.SEOKey(slug, lang))
	w.WriteHeader(http.StatusNoContent)
}

// handleListNavigation returns a menu's flat item list, inactive items
// included, in display order.
func (s *Server) handleListNavigation(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	items, err := s.admin.AllNavigation(r.Context(), r.PathValue("menu"), s.language(r))
	if err != nil {
		s.writeFailed(w, "list navigation", err)
		return
	}
	if items == nil {
		items = []models.NavItem{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handlePutNavItem(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	var n models.NavItem
	if !decodeBody(w, r, &n) {
		return
	}
	if n.Label == "" {
		writeJSONError(w, http.StatusBadRequest, "label is required")
		return
	}
	if n.MenuKey == "" {
		n.MenuKey = content.DefaultMenu
	}
	if n.Language == "" {
		n.Language = s.cfg.DefaultLanguage
	}

	keys := []string{cache.NavKey(n.MenuKey, n.Language)}
	if n.ID != "" {
		// an item moved to another menu leaves the old menu stale too
		if prev, err := s.admin.NavItem(r.Context(), n.ID); err == nil {
			if old := cache.NavKey(prev.MenuKey, prev.Language); old != keys[0] {
				keys = append(keys, old)
			}
		}
	}

	if err := s.admin.UpsertNavItem(r.Context(), &n); err != nil {
		s.writeFailed(w, "upsert navigation item", err)
		return
	}
	s.invalidate(r, "upsert navigation item", n.ID, keys...)
	writeJSON(w, http.StatusOK, n)
}

func (s *Server) handleDeleteNavItem(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	deleted, err := s.admin.DeleteNavItem(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeFailed(w, "delete navigation item", err)
		return
	}
	s.invalidate(r, "delete navigation item", deleted.ID, cache.NavKey(deleted.MenuKey, deleted.Language))
	w.WriteHeader(http.StatusNoContent)
}

type settingRequest struct {
	Value string `json:"value"`
}

func (s *Server) handlePutSetting(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	var req settingRequest
	if !decodeBody(w, r, &req) {
		return
	}
	name := r.PathValue("name")
	if err := s.admin.SetSetting(r.Context(), name, req.Value); err != nil {
		s.writeFailed(w, "set setting", err)
		return
	}
	s.invalidate(r, "set setting", name, cache.SettingsKey)
	writeJSON(w, http.StatusOK, models.SiteSetting{Name: name, Value: req.Value})
}

func (s *Server) handleDeleteSetting(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	name := r.PathValue("name")
	if err := s.admin.DeleteSetting(r.Context(), name); err != nil {
		s.writeFailed(w, "delete setting", err)
		return
	}
	s.invalidate(r, "delete setting", name, cache.SettingsKey)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePutSEO(w http.ResponseWriter, r *http.Request) {
	if !s.writable(w) {
		return
	}
	var m models.SEOMeta
	if !decodeBody(w, r, &m) {
		return
	}
	if m.PageSlug == "" {
		writeJSONError(w, http.StatusBadRequest, "page_slug is required")
		return
	}
	if m.Language == "" {
		m.Language = s.cfg.DefaultLanguage
	}
	var keys []string
	if m.ID != "" {
		prev, err := s.admin.SEOByID(r.Context(), m.ID)
		switch {
		case err == nil && (prev.PageSlug != m.PageSlug || prev.Language != m.Language):
			keys = append(keys, cache.SEOKey(prev.PageSlug, prev.Language))
		case err != nil && !errors.Is(err, store.ErrNotFound):
			s.writeFailed(w, "upsert seo", err)
			return
		}
	}
	if err := s.admin.UpsertSEO(r.Context(), &m); err != nil {
		s.writeFailed(w, "upsert seo", err)
		return
	}
	keys = append(keys, cache.SEOKey(m.PageSlug, m.Language))
	s.invalidate(r, "upsert seo", m.PageSlug+":"+m.Language, keys...)
	writeJSON(w, http.StatusOK, m)
}
