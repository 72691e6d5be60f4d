package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"

	"github.com/use-agent/fieldscout/api"
	"github.com/use-agent/fieldscout/api/handler"
	"github.com/use-agent/fieldscout/app"
	"github.com/use-agent/fieldscout/cache"
	"github.com/use-agent/fieldscout/config"
	"github.com/use-agent/fieldscout/webhook"
)

func main() {
	// ── 1. Load configuration (.env is read by the autoload import) ─
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	app.InitLogger(cfg.Log)
	slog.Info("fieldscout starting",
		"version", handler.Version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"maxTabs", cfg.Browser.MaxPages,
	)

	// ── 3. Wire components (launches browser) ───────────────────────
	a, err := app.New(cfg)
	if err != nil {
		slog.Error("failed to initialise", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	// ── 4. Initialise cache and webhook sender ──────────────────────
	cc := cache.New(cfg.Cache.MaxEntries)
	defer cc.Stop()
	sender := &webhook.Sender{Client: &http.Client{Timeout: 10 * time.Second}}

	// ── 5. Setup router ─────────────────────────────────────────────
	startTime := time.Now()
	router := api.NewRouter(api.Services{
		Runner:   a.Pipeline,
		Parser:   a.Parser,
		Geocoder: a.Geocoder,
		Pool:     a.Scraper,
		Cache:    cc,
		Webhooks: sender,
	}, cfg, startTime)

	// ── 6. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 7. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// Running crawl jobs are abandoned; a.Close() kills Chrome via defer.
	slog.Info("fieldscout stopped")
}
