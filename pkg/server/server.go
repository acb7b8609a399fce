// Package server exposes site content and the administrative write surface
// over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/intellicloud/icweb/pkg/config"
	"github.com/intellicloud/icweb/pkg/content"
	"github.com/intellicloud/icweb/pkg/metrics"
	"github.com/intellicloud/icweb/pkg/models"
)

const maxBodySize = 1 << 20

// AdminStore is the write side of the content backend. Every successful
// write made through the server is followed by a cache invalidation.
type AdminStore interface {
	ListPages(ctx context.Context, language string) ([]models.Page, error)
	PageByID(ctx context.Context, id string) (*models.Page, error)
	UpsertPage(ctx context.Context, p *models.Page) error
	DeletePage(ctx context.Context, slug, language string) error
	AllNavigation(ctx context.Context, menuKey, language string) ([]models.NavItem, error)
	NavItem(ctx context.Context, id string) (models.NavItem, error)
	UpsertNavItem(ctx context.Context, n *models.NavItem) error
	DeleteNavItem(ctx context.Context, id string) (models.NavItem, error)
	SetSetting(ctx context.Context, name, value string) error
	DeleteSetting(ctx context.Context, name string) error
	SEOByID(ctx context.Context, id string) (*models.SEOMeta, error)
	UpsertSEO(ctx context.Context, m *models.SEOMeta) error
}

// Auditor records administrative changes.
type Auditor interface {
	Log(ctx context.Context, entry models.ChangeEntry) error
	Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.ChangeEntry, error)
}

// Server is the icweb HTTP API.
type Server struct {
	cfg     *config.Config
	loader  *content.Loader
	admin   AdminStore
	auditor Auditor
	log     logrus.FieldLogger
	mux     *http.ServeMux
}

// Option configures a Server.
type Option func(*Server)

// WithAuditor records every successful admin change in a.
func WithAuditor(a Auditor) Option {
	return func(s *Server) {
		s.auditor = a
	}
}

// New creates a Server. admin may be nil when the backend is read-only;
// content write routes then answer 501.
func New(cfg *config.Config, loader *content.Loader, admin AdminStore, log logrus.FieldLogger, opts ...Option) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{
		cfg:    cfg,
		loader: loader,
		admin:  admin,
		log:    log,
		mux:    http.NewServeMux(),
	}
	for _, o := range opts {
		o(s)
	}

	s.handle("GET /api/pages/{slug}", s.handlePage)
	s.handle("GET /api/navigation/{menu}", s.handleNavigation)
	s.handle("GET /api/settings", s.handleSettings)
	s.handle("GET /api/seo/{slug}", s.handleSEO)
	s.handle("GET /healthz", s.handleHealth)
	s.mux.Handle("GET /metrics", metrics.Handler())

	s.handle("POST /api/admin/cache/clear", s.requireAdmin(s.handleCacheClear))
	s.handle("GET /api/admin/cache/stats", s.requireAdmin(s.handleCacheStats))
	s.handle("GET /api/admin/pages", s.requireAdmin(s.handleListPages))
	s.handle("PUT /api/admin/pages", s.requireAdmin(s.handlePutPage))
	s.handle("DELETE /api/admin/pages/{slug}", s.requireAdmin(s.handleDeletePage))
	s.handle("GET /api/admin/navigation/{menu}", s.requireAdmin(s.handleListNavigation))
	s.handle("PUT /api/admin/navigation", s.requireAdmin(s.handlePutNavItem))
	s.handle("DELETE /api/admin/navigation/{id}", s.requireAdmin(s.handleDeleteNavItem))
	s.handle("PUT /api/admin/settings/{name}", s.requireAdmin(s.handlePutSetting))
	s.handle("DELETE /api/admin/settings/{name}", s.requireAdmin(s.handleDeleteSetting))
	s.handle("PUT /api/admin/seo", s.requireAdmin(s.handlePutSEO))
	s.handle("GET /api/admin/audit", s.requireAdmin(s.handleAudit))
	return s
}

// handle registers h under pattern and counts responses per route.
func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.HTTPRequests.WithLabelValues(pattern, metrics.StatusClass(rec.status)).Inc()
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the server with graceful shutdown support.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", s.cfg.Listen).Info("icweb listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Admin.Token == "" {
			writeJSONError(w, http.StatusForbidden, "admin API disabled")
			return
		}
		token := extractBearer(r)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.Admin.Token)) != 1 {
			writeJSONError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next(w, r)
	}
}

// extractBearer returns the token from an "Authorization: Bearer" header.
func extractBearer(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func setCacheHeader(w http.ResponseWriter, hit bool) {
	if hit {
		w.Header().Set("X-Icweb-Cache", "hit")
	} else {
		w.Header().Set("X-Icweb-Cache", "miss")
	}
}
