package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"grain-admin/internal/market"
	"grain-admin/internal/search"
)

func (s *Server) handleStationByCode(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	station, err := s.db.StationByCode(r.Context(), code)
	if errors.Is(err, market.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("station %q not found", code))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	base := ""
	if station.RegionID != 0 && station.DistrictID != 0 {
		hub, err := s.db.BaseStation(r.Context(), station.RegionID, station.DistrictID, station.LocalityID)
		if err == nil {
			base = hub.Code
		} else if !errors.Is(err, market.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	writeJSON(w, map[string]any{
		"code":              station.Code,
		"name":              station.Name,
		"region":            station.RegionName,
		"district":          station.DistrictName,
		"locality":          station.LocalityName,
		"base":              station.Base,
		"base_station_code": base,
	})
}

func (s *Server) handleSearchSuggest(w http.ResponseWriter, r *http.Request) {
	if s.search == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}
	entity := chi.URLParam(r, "entity")
	if !search.ValidEntity(entity) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown search entity %q", entity))
		return
	}

	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit %q", v))
			return
		}
		limit = n
	}
	if limit > 50 {
		limit = 50
	}

	hits, err := s.search.Suggest(r.Context(), entity, r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, map[string]any{"entity": entity, "hits": hits})
}

func (s *Server) handleSearchReindex(w http.ResponseWriter, r *http.Request) {
	if s.reindex == nil {
		writeError(w, http.StatusServiceUnavailable, "search is not configured")
		return
	}

	job := uuid.NewString()
	var counts map[string]int
	if entity := r.URL.Query().Get("entity"); entity != "" {
		if !search.ValidEntity(entity) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown search entity %q", entity))
			return
		}
		n, err := s.reindex.ReindexEntity(r.Context(), entity)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts = map[string]int{entity: n}
	} else {
		all, err := s.reindex.ReindexAll(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		counts = all
	}
	for entity, n := range counts {
		s.metrics.AddReindexed(entity, n)
	}
	// Reference data just changed, so cached tables are stale.
	dropped := s.cache.Invalidate()

	writeJSON(w, map[string]any{
		"job":               job,
		"counts":            counts,
		"cache_invalidated": dropped,
	})
}

func (s *Server) handleCacheInvalidate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]int{"dropped": s.cache.Invalidate()})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.db.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("db: %v", err))
		return
	}
	if s.search != nil {
		if err := s.search.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("search: %v", err))
			return
		}
	}
	writeJSON(w, map[string]string{"status": "ok"})
}
