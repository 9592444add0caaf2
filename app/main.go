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

	"github.com/rssjumper/rssjumper/app/api"
	"github.com/rssjumper/rssjumper/app/blacklist"
	"github.com/rssjumper/rssjumper/app/cache"
	"github.com/rssjumper/rssjumper/app/cfg"
	"github.com/rssjumper/rssjumper/app/fetcher"
	"github.com/rssjumper/rssjumper/app/ledger"
	"github.com/rssjumper/rssjumper/app/proxy"
	"github.com/rssjumper/rssjumper/app/ratelimit"
	"github.com/rssjumper/rssjumper/app/store"
)

func main() {
	appCfg, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	setupLogging(appCfg.Debug)
	slog.Info("Starting RSSJumper", "version", appCfg.Version, "storage", appCfg.Storage)

	blobStore, err := newStore(appCfg)
	if err != nil {
		slog.Error("Failed to initialize blob store", "storage", appCfg.Storage, "error", err)
		os.Exit(1)
	}
	defer blobStore.Close()

	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelStartup()

	bl := blacklist.New(blobStore)
	if err := bl.Load(startupCtx); err != nil {
		slog.Warn("Failed to load blacklist, starting empty", "error", err)
	}
	bl.Seed(appCfg.SeedBlacklist)
	slog.Info("Blacklist loaded", "count", bl.Count())

	limiter := ratelimit.NewLimiter(appCfg.RateLimit,
		time.Duration(appCfg.BanDuration)*time.Second, blobStore)
	if err := limiter.LoadBans(startupCtx); err != nil {
		slog.Warn("Failed to load ban list, starting empty", "error", err)
	}

	accessLedger := ledger.New(blobStore, time.Duration(appCfg.FlushInterval)*time.Second)
	accessLedger.Start()
	defer accessLedger.Stop()

	feedCache := cache.New(blobStore, time.Duration(appCfg.CacheTTL)*time.Second)
	feedFetcher := fetcher.New(appCfg.UserAgent)

	engine := proxy.NewEngine(feedCache, accessLedger, feedFetcher, bl, limiter)

	handler := api.NewHandler(engine, bl, accessLedger, feedCache, limiter)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		slog.Info("Proxy endpoint", "url", fmt.Sprintf("http://localhost:%s/?url=<feed-url>", appCfg.Port))
		if appCfg.AdminPassword != "" {
			slog.Info("Admin surface enabled", "url", fmt.Sprintf("http://localhost:%s/?password=<secret>", appCfg.Port))
		} else {
			slog.Info("Admin surface disabled (PASSWORD not set)")
		}

		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	// Ledger flush and store close run via defers
	slog.Info("Shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func newStore(appCfg *cfg.Cfg) (store.Store, error) {
	switch appCfg.Storage {
	case "redis":
		return store.NewRedisStore(appCfg.RedisAddr)
	case "memory":
		slog.Warn("Using in-memory storage, state will not survive restarts")
		return store.NewMemoryStore(), nil
	default:
		return store.NewSQLiteStore(appCfg.DBPath)
	}
}
