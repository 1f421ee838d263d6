package api

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"grain-admin/internal/config"
	"grain-admin/internal/db"
	"grain-admin/internal/market"
	"grain-admin/internal/metrics"
	"grain-admin/internal/render"
	"grain-admin/internal/search"
)

// Server is the HTTP surface that connects the market engine, the rendered
// table cache, the search mirror and the database.
type Server struct {
	cfg      *config.Config
	db       *db.DB
	engine   *market.Engine
	cache    *market.ReportCache
	renderer *render.Renderer
	metrics  *metrics.Registry

	// nil when REDIS_URL is empty: the search endpoints answer 503.
	search  *search.Client
	reindex *search.Reindexer
}

// NewServer creates a Server over its collaborators. search and reindex may
// be nil; metrics may be nil.
func NewServer(cfg *config.Config, database *db.DB, engine *market.Engine,
	cache *market.ReportCache, renderer *render.Renderer,
	searchClient *search.Client, reindexer *search.Reindexer,
	m *metrics.Registry) *Server {
	return &Server{
		cfg:      cfg,
		db:       database,
		engine:   engine,
		cache:    cache,
		renderer: renderer,
		search:   searchClient,
		reindex:  reindexer,
		metrics:  m,
	}
}

// Handler returns the HTTP handler with all routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/market/table", s.handleMarketTable)
	r.Get("/market/download", s.handleMarketDownload)
	r.Get("/api/stations/{code}", s.handleStationByCode)
	r.Get("/api/search/{entity}", s.handleSearchSuggest)
	r.Post("/api/search/reindex", s.handleSearchReindex)
	r.Post("/api/market/invalidate", s.handleCacheInvalidate)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// statusWriter remembers the response code for the request log.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)

		d := time.Since(start)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		log.Printf("[HTTP] %s %s -> %d (%s)", r.Method, r.URL.Path, sw.status, d.Round(time.Millisecond))
		s.metrics.ObserveHTTP(r.Method, route, sw.status, d)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
