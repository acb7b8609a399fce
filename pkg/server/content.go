package server

import (
	"net/http"

	"github.com/intellicloud/icweb/pkg/models"
)

type navigationResponse struct {
	Menu     string            `json:"menu"`
	Language string            `json:"language"`
	Items    []*models.NavNode `json:"items"`
}

func (s *Server) language(r *http.Request) string {
	if lang := r.URL.Query().Get("lang"); lang != "" {
		return lang
	}
	return s.cfg.DefaultLanguage
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	page, hit := s.loader.PageBySlug(r.Context(), r.PathValue("slug"), s.language(r))
	setCacheHeader(w, hit)
	if page == nil {
		writeJSONError(w, http.StatusNotFound, "page not found")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleNavigation(w http.ResponseWriter, r *http.Request) {
	menu, lang := r.PathValue("menu"), s.language(r)
	items, hit := s.loader.Navigation(r.Context(), menu, lang)
	setCacheHeader(w, hit)
	if items == nil {
		writeJSONError(w, http.StatusNotFound, "navigation not found")
		return
	}
	writeJSON(w, http.StatusOK, navigationResponse{Menu: menu, Language: lang, Items: items})
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	settings, hit := s.loader.SiteSettings(r.Context())
	setCacheHeader(w, hit)
	if settings == nil {
		writeJSONError(w, http.StatusNotFound, "settings not found")
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (s *Server) handleSEO(w http.ResponseWriter, r *http.Request) {
	meta, hit := s.loader.PageSEO(r.Context(), r.PathValue("slug"), s.language(r))
	setCacheHeader(w, hit)
	if meta == nil {
		writeJSONError(w, http.StatusNotFound, "seo metadata not found")
		return
	}
	writeJSON(w, http.StatusOK, meta)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
