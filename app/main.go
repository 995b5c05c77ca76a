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

	"github.com/lysyi3m/news-digest/app/api"
	"github.com/lysyi3m/news-digest/app/cfg"
	"github.com/lysyi3m/news-digest/app/cms"
	"github.com/lysyi3m/news-digest/app/digest"
	"github.com/lysyi3m/news-digest/app/newsletter"
	"github.com/lysyi3m/news-digest/app/stocks"
	"github.com/lysyi3m/news-digest/app/storage"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	setupLogger(appConfig.Debug)

	if err := run(appConfig); err != nil {
		slog.Error("News digest server failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

func run(appConfig *cfg.Cfg) error {
	slog.Info("Starting news digest server", "version", appConfig.Version, "storage", appConfig.Storage)

	ctx := context.Background()

	store, err := storage.New(ctx, storage.Options{
		Kind:     storage.Kind(appConfig.Storage),
		DBPath:   appConfig.DBPath,
		RedisURL: appConfig.RedisURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	defer store.Close()

	registry := digest.NewRegistry(appConfig.SourcesFile)
	if err := registry.Run(); err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}
	slog.Info("Loaded source registry", "sources", registry.GetSourceCount(), "presets", len(registry.GetPresets()))

	fetcher := digest.NewFetcher(&http.Client{Timeout: appConfig.FetchTimeout}, digest.FetcherOptions{
		Retries:   appConfig.FetchRetries,
		BaseDelay: appConfig.FetchBaseDelay,
		UserAgent: appConfig.UserAgent,
	})
	aggregator := digest.NewAggregator(registry, digest.NewFeedReader(fetcher), digest.NewContentExtractor(fetcher), digest.AggregatorOptions{
		MaxSources:  appConfig.MaxSources,
		CeidPolicy:  digest.CeidPolicy(appConfig.GoogleCeidPolicy),
		Concurrency: appConfig.FetchConcurrency,
		Timeout:     appConfig.FetchTimeout,
	})

	httpClient := &http.Client{Timeout: 15 * time.Second}

	var provider stocks.Provider
	if appConfig.FinnhubAPIKey != "" {
		provider = stocks.NewFinnhubProvider(appConfig.FinnhubAPIKey, httpClient, appConfig.StockProfiles)
	} else {
		slog.Warn("Stock quotes disabled (FINNHUB_API_KEY not set)")
	}
	quotes := stocks.NewService(provider, store, stocks.Options{
		Symbols: appConfig.StockSymbols,
		TTL:     appConfig.StockCacheTTL,
	})

	if appConfig.PayloadAPIURL == "" {
		slog.Warn("CMS proxy not configured (PAYLOAD_API_URL not set)")
	}
	cmsService := cms.NewService(cms.NewClient(appConfig.PayloadAPIURL, httpClient), store, appConfig.CMSCacheTTL)

	apiHandler := api.NewHandler(api.Dependencies{
		Digest:      aggregator,
		Registry:    registry,
		Quotes:      quotes,
		CMS:         cmsService,
		Newsletter:  newsletter.NewClient(appConfig.ButtondownAPIKey, httpClient),
		BaseURL:     appConfig.BaseUrl,
		StorageKind: appConfig.Storage,
		Version:     appConfig.Version,
	})
	server := api.NewServer(apiHandler, api.ServerOptions{
		APIAccessKey: appConfig.APIAccessKey,
		CORSOrigins:  appConfig.CORSOrigins,
	})

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	var serverErr error
	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case serverErr = <-serverErrChan:
		slog.Error("Server error", "error", serverErr)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("News digest server shutdown complete")
	return serverErr
}
