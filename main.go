// Riffle is a self-hosted feed reader.
//
// It keeps RSS, Atom, RDF and YouTube subscriptions in sqlite, re-syncs them
// on an interval and serves the timeline over a JSON API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/run"
	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/riffle/internal/api"
	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/htmltext"
	"github.com/jdholdren/riffle/internal/icon"
	"github.com/jdholdren/riffle/internal/migrations"
	"github.com/jdholdren/riffle/internal/seed"
	"github.com/jdholdren/riffle/internal/sqlite"
	"github.com/jdholdren/riffle/internal/sync"
	"github.com/jdholdren/riffle/internal/timeline"
	"github.com/jdholdren/riffle/internal/youtube"
	"github.com/jdholdren/riffle/logger"
)

type config struct {
	Port     int    `env:"PORT, default=4444"`
	Database string `env:"DATABASE, required"`

	// Which format to use for logging: either text or json
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`

	SyncInterval time.Duration `env:"SYNC_INTERVAL, default=15m"`
	CorsOrigin   string        `env:"CORS_ORIGIN, default=*"`

	// Optional YAML list of feeds to subscribe to on start
	SeedFile string `env:"SEED_FILE"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(cfg.LoggerFormat, os.Stderr))

	// Start the application
	if err := runApp(ctx, cfg); err != nil {
		slog.Error("error running", "error", err)
		os.Exit(1)
	}
}

func runApp(ctx context.Context, cfg config) error {
	slog.Info("running", "config", cfg)

	if cfg.SyncInterval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", cfg.SyncInterval)
	}

	// Connect to the db
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer dbx.Close()

	// Migrate, always
	if err := migrations.Run(dbx); err != nil {
		return fmt.Errorf("error migrating: %s", err)
	}

	var (
		repo       = sqlite.New(dbx)
		subscriber = sync.NewSubscriber(sync.SubscriberParams{
			Fetcher:  fetch.New(fetch.DefaultTimeout),
			Icons:    icon.NewFinder(icon.DefaultTimeout),
			Channels: youtube.NewResolver(fetch.DefaultTimeout),
			Store:    repo,
			Text:     htmltext.Converter{},
		})
		orchestrator = sync.NewOrchestrator(repo, subscriber)
	)

	if cfg.SeedFile != "" {
		entries, err := seed.Load(cfg.SeedFile)
		if err != nil {
			return err
		}
		if err := seed.Apply(ctx, entries, subscriber, repo); err != nil {
			return fmt.Errorf("error seeding: %s", err)
		}
	}

	s := api.NewServer(api.ServerConfig{
		Port:       cfg.Port,
		CorsOrigin: cfg.CorsOrigin,
	}, repo, timeline.NewService(repo), subscriber, orchestrator)

	var g run.Group
	g.Add(run.SignalHandler(ctx, os.Interrupt, syscall.SIGTERM))
	g.Add(func() error {
		// Start the server
		if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("error listening: %s", err)
		}

		return nil
	}, func(error) {
		downCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.Shutdown(downCtx); err != nil {
			slog.Error("error shutting down server", "error", err)
		}
	})

	syncCtx, stopSync := context.WithCancel(ctx)
	g.Add(func() error {
		// Start the syncer
		if err := orchestrator.Run(syncCtx, cfg.SyncInterval); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("error running syncer: %s", err)
		}

		return nil
	}, func(error) {
		stopSync()
	})

	err = g.Run()
	var sigErr run.SignalError
	if err != nil && !errors.As(err, &sigErr) && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("error running: %s", err)
	}

	return nil
}
