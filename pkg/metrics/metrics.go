package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every icweb collector. It is separate from the global
// default registry so tests can construct components freely.
var Registry = prometheus.NewRegistry()

var registerer = prometheus.WrapRegistererWithPrefix("icweb_", Registry)

var (
	// CacheLookups counts cache reads by result ("hit" or "miss").
	CacheLookups = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Content cache lookups by result",
		},
		[]string{"result"},
	)

	// CacheEvictions counts entries dropped because their TTL elapsed.
	CacheEvictions = promauto.With(registerer).NewCounter(
		prometheus.CounterOpts{
			Name: "cache_evictions_total",
			Help: "Expired content cache entries evicted on read",
		},
	)

	// Fetches counts backend fetches by content kind and outcome
	// ("ok", "empty" or "error").
	Fetches = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "fetches_total",
			Help: "Backend content fetches by kind and outcome",
		},
		[]string{"kind", "outcome"},
	)

	// NavOrphans counts navigation items promoted to root because their
	// parent was missing.
	NavOrphans = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nav_orphans_total",
			Help: "Navigation items promoted to root due to a dangling parent reference",
		},
		[]string{"menu"},
	)

	// NavUnreachable counts navigation items left out of a tree because
	// their parent chain never reaches a root.
	NavUnreachable = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "nav_unreachable_total",
			Help: "Navigation items unreachable from any root (parent cycles)",
		},
		[]string{"menu"},
	)

	// HTTPRequests counts API requests by route pattern and status class.
	HTTPRequests = promauto.With(registerer).NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP API requests by route and status class",
		},
		[]string{"route", "status"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// StatusClass collapses an HTTP status code into "2xx", "4xx" and so on.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
