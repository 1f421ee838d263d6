package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"grain-admin/internal/api"
	"grain-admin/internal/config"
	"grain-admin/internal/db"
	"grain-admin/internal/logger"
	"grain-admin/internal/market"
	"grain-admin/internal/metrics"
	"grain-admin/internal/render"
	"grain-admin/internal/search"
)

var version = "dev"

func main() {
	logger.Banner(version)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("CONFIG", fmt.Sprintf("Failed to load configuration: %v", err))
		os.Exit(1)
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	m := metrics.New()

	var searchClient *search.Client
	var reindexer *search.Reindexer
	if cfg.RedisURL != "" {
		searchClient, err = search.New(context.Background(), cfg.RedisURL)
		if err != nil {
			logger.Error("SEARCH", fmt.Sprintf("Failed to connect to Redis: %v", err))
			os.Exit(1)
		}
		defer searchClient.Close()
		reindexer = search.NewReindexer(searchClient, database)
		logger.Success("SEARCH", "Connected to Redis")
	} else {
		logger.Warn("SEARCH", "REDIS_URL not set, search endpoints disabled")
	}

	renderer, err := render.New(cfg.BaseURL, cfg.AdminBaseURL)
	if err != nil {
		logger.Error("RENDER", fmt.Sprintf("Failed to parse templates: %v", err))
		os.Exit(1)
	}

	engine := market.NewEngine(database, database)
	engine.Observe = m.ObservePhase
	cache := market.NewReportCache(cfg.MarketCacheTTL)

	if stats, err := database.Counts(context.Background()); err == nil {
		logger.Section("Reference data")
		logger.Stats("Stations", stats.Stations)
		logger.Stats("Partners", stats.Partners)
		logger.Stats("Active bids", stats.ActiveBids)
		logger.Stats("Tariffs", stats.Tariffs)
	}

	server := api.NewServer(cfg, database, engine, cache, renderer, searchClient, reindexer, m)

	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Server(cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP", fmt.Sprintf("Server failed: %v", err))
			os.Exit(1)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("HTTP", "Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Shutdown: %v", err))
	}
}
