// Package metrics exposes Prometheus instrumentation for the admin daemon.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles the daemon's Prometheus collectors. A nil *Registry is
// valid and records nothing, so wiring stays optional in tests.
type Registry struct {
	reg *prometheus.Registry

	phaseDuration *prometheus.HistogramVec
	generations   *prometheus.CounterVec
	cacheEvents   *prometheus.CounterVec
	reindexed     *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

// New creates and registers all collectors on a private registry.
func New() *Registry {
	reg := prometheus.NewRegistry()

	phaseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grain_market_phase_seconds",
		Help:    "Duration of market view computation phases",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	generations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grain_market_generations_total",
		Help: "Market view computations by outcome",
	}, []string{"outcome"})

	cacheEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grain_market_cache_events_total",
		Help: "Rendered market table cache hits and misses",
	}, []string{"event"})

	reindexed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grain_search_reindexed_total",
		Help: "Documents written to the search mirror by entity",
	}, []string{"entity"})

	httpDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "grain_http_request_seconds",
		Help:    "HTTP request duration by route and status",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	reg.MustRegister(phaseDuration, generations, cacheEvents, reindexed, httpDuration)
	return &Registry{
		reg:           reg,
		phaseDuration: phaseDuration,
		generations:   generations,
		cacheEvents:   cacheEvents,
		reindexed:     reindexed,
		httpDuration:  httpDuration,
	}
}

// ObservePhase records the duration of one computation phase.
func (m *Registry) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// IncGenerated counts a successfully computed market view.
func (m *Registry) IncGenerated() {
	if m == nil {
		return
	}
	m.generations.WithLabelValues("ok").Inc()
}

// IncGenerationError counts a computation rejected with diagnostics.
func (m *Registry) IncGenerationError() {
	if m == nil {
		return
	}
	m.generations.WithLabelValues("error").Inc()
}

// IncCacheHit counts a rendered table served from cache.
func (m *Registry) IncCacheHit() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("hit").Inc()
}

// IncCacheMiss counts a rendered table built on demand.
func (m *Registry) IncCacheMiss() {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues("miss").Inc()
}

// AddReindexed counts documents written to the search mirror.
func (m *Registry) AddReindexed(entity string, n int) {
	if m == nil {
		return
	}
	m.reindexed.WithLabelValues(entity).Add(float64(n))
}

// ObserveHTTP records one served request.
func (m *Registry) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
}

// Handler serves the scrape endpoint for this registry.
func (m *Registry) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
