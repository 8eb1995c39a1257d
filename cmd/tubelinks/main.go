package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"tubelinks/internal/bot"
	"tubelinks/internal/config"
	"tubelinks/internal/fetcher"
	"tubelinks/internal/filter"
	"tubelinks/internal/pipeline"
	"tubelinks/internal/storage"
)

const badgerGCInterval = 5 * time.Minute

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "tubelinks: %v\n", err)
		os.Exit(1)
	}
}

// run wires the components and blocks until a shutdown signal. Everything it
// opens is released through defers, so it returns instead of exiting.
func run() error {
	// --- Configuration Loading ---
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}

	// --- Logger Setup ---
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(cfg.Level())

	log.WithFields(logrus.Fields{
		"filter_store":    cfg.FilterStore,
		"api_key_set":     cfg.YouTubeAPIKey != "",
		"scrape_fallback": cfg.ScrapeFallback,
	}).Info("Configuration loaded successfully")

	// Create context that listens for interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Initialize Components ---
	log.Info("Initializing components...")

	defaults, err := filter.NewDefaultSet(cfg.DefaultFilterWords)
	if err != nil {
		return fmt.Errorf("invalid default filter words: %w", err)
	}

	// Description fetcher
	descFetcher, err := newFetcher(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize description fetcher: %w", err)
	}

	// Filter store
	var store filter.Store
	switch cfg.FilterStore {
	case config.StoreBadger:
		badgerStore, err := storage.NewBadgerStore(cfg.BadgerDBPath, defaults, log)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer func() {
			log.Info("Closing database...")
			if err := badgerStore.Close(); err != nil {
				log.WithError(err).Error("Error closing database")
			}
		}()
		go badgerStore.RunGC(ctx, badgerGCInterval)
		store = badgerStore
	default:
		store = filter.NewMemoryStore(defaults, log)
	}

	retry := pipeline.DefaultRetryPolicy()
	retry.MaxRetries = uint64(cfg.FetchRetries)
	retry.AttemptTimeout = cfg.FetchTimeout
	service := pipeline.NewService(descFetcher, store, retry, log)

	// Bot Handler
	botHandler, err := bot.NewHandler(cfg, store, service, log)
	if err != nil {
		return fmt.Errorf("failed to initialize Telegram bot handler: %w", err)
	}

	// --- Application Startup ---
	log.Info("Starting tubelinks...")
	serve(ctx, botHandler, log)
	log.Info("tubelinks stopped")
	return nil
}

type poller interface {
	Start(ctx context.Context)
}

// serve runs the bot until ctx is cancelled and waits for polling and
// in-flight updates to finish before returning.
func serve(ctx context.Context, p poller, log logrus.FieldLogger) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.Start(ctx)
	}()
	log.Info("tubelinks is running. Press Ctrl+C to exit.")

	// --- Wait for Shutdown Signal ---
	<-ctx.Done()
	log.Info("Shutting down tubelinks...")
	<-done
}

// newFetcher prefers the Data API and falls back to scraping when allowed.
func newFetcher(ctx context.Context, cfg config.Config, log logrus.FieldLogger) (fetcher.Fetcher, error) {
	var scraper fetcher.Fetcher
	if cfg.ScrapeFallback {
		scraper = fetcher.NewRodFetcher(cfg.FetchTimeout, log)
	}
	if cfg.YouTubeAPIKey == "" {
		log.Warn("YOUTUBE_API_KEY not set, scraping watch pages instead")
		return scraper, nil
	}

	api, err := fetcher.NewAPIFetcher(ctx, cfg.YouTubeAPIKey, log)
	if err != nil {
		return nil, err
	}
	if scraper != nil {
		api.SetFallback(scraper)
	}
	return api, nil
}
