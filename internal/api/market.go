package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"grain-admin/internal/export"
	"grain-admin/internal/market"
	"grain-admin/internal/render"
)

// marketQuery is a validated market table request.
type marketQuery struct {
	params   market.Params
	template string
}

// marketQueryFrom validates the query string. The admin UI sends the literal
// "null" station for the market-wide view, so both spellings mean no
// destination.
func (s *Server) marketQueryFrom(r *http.Request) (marketQuery, error) {
	q := r.URL.Query()

	dir, err := market.ParseDirection(q.Get("direction"))
	if err != nil {
		return marketQuery{}, err
	}

	tax := market.TaxExcluded
	if v := q.Get("nds"); v != "" {
		if tax, err = market.ParseTaxMode(v); err != nil {
			return marketQuery{}, err
		}
	}

	station := q.Get("station")
	if station == "null" {
		station = ""
	}

	template := q.Get("template")
	if template == "" {
		template = "market-table"
	}
	if !s.renderer.Has(template) {
		return marketQuery{}, fmt.Errorf("unknown template %q", template)
	}

	rows := s.cfg.DefaultRowsLimit
	if v := q.Get("rows"); v != "" {
		if rows, err = strconv.Atoi(v); err != nil {
			return marketQuery{}, fmt.Errorf("invalid rows %q", v)
		}
	}

	return marketQuery{
		params: market.Params{
			StationCode: station,
			Direction:   dir,
			TaxMode:     tax,
			RowsLimit:   rows,
		},
		template: template,
	}, nil
}

// handleMarketTable serves the rendered market table. Market-wide views are
// cached; destination views are computed per request because the diagnostics
// depend on live tariff data.
func (s *Server) handleMarketTable(w http.ResponseWriter, r *http.Request) {
	q, err := s.marketQueryFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var html string
	if q.params.StationCode == "" {
		key := market.CacheKey{
			Direction: q.params.Direction,
			TaxMode:   q.params.TaxMode,
			Template:  q.template,
			RowsLimit: q.params.RowsLimit,
		}
		// The build is shared between coalesced requests, so it must not
		// die with whichever request context cancels first.
		cached, hit, err := s.cache.GetOrBuild(key, func() (string, error) {
			return s.buildMarketHTML(context.Background(), q)
		})
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		if hit {
			s.metrics.IncCacheHit()
		} else {
			s.metrics.IncCacheMiss()
		}
		html = cached
	} else {
		built, err := s.buildMarketHTML(r.Context(), q)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		html = built
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(html))
}

// buildMarketHTML computes the view and renders it. Generation failures come
// back as the rendered error page, not as an error: the operator sees the
// diagnostics with a regular 200 response.
func (s *Server) buildMarketHTML(ctx context.Context, q marketQuery) (string, error) {
	view, err := s.engine.ComputeView(ctx, q.params)
	var genErr *market.GenerationError
	if errors.As(err, &genErr) {
		s.metrics.IncGenerationError()
		return s.renderer.RenderError(genErr.Diagnostics)
	}
	if err != nil {
		return "", err
	}
	s.metrics.IncGenerated()

	var station *market.Station
	if q.params.StationCode != "" {
		if station, err = s.db.StationByCode(ctx, q.params.StationCode); err != nil {
			return "", err
		}
	}
	return s.renderer.Render(q.template, render.Params{
		View:        view,
		Direction:   q.params.Direction,
		TaxMode:     q.params.TaxMode,
		Station:     station,
		CurrentDate: time.Now().Format("02.01.06"),
	})
}

// handleMarketDownload streams the computed view as csv, json or parquet.
// Unlike the HTML table, generation failures are machine-readable here.
func (s *Server) handleMarketDownload(w http.ResponseWriter, r *http.Request) {
	q, err := s.marketQueryFrom(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	format := r.URL.Query().Get("format")
	saver := export.ForFormat(format)
	if saver == nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unsupported format %q", format))
		return
	}

	view, err := s.engine.ComputeView(r.Context(), q.params)
	var genErr *market.GenerationError
	if errors.As(err, &genErr) {
		s.metrics.IncGenerationError()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]any{
			"error":       "market generation failed",
			"diagnostics": genErr.Diagnostics,
		})
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.metrics.IncGenerated()

	filename := export.Filename(q.params.Direction, saver.Extension(), time.Now())
	w.Header().Set("Content-Type", saver.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := saver.Save(w, export.Flatten(view)); err != nil {
		// Headers are gone; all we can do is log.
		log.Printf("[HTTP] download write failed: %v", err)
	}
}
