// Sync runs a single pass over every subscription and prints the counts.
//
// It exits non-zero when there were feeds to sync and none of them worked.
package main

import (
	"context"
	"encoding/json"
	"log"
	"log/slog"
	"os"
	"os/signal"

	"github.com/sethvargo/go-envconfig"
	_ "golang.org/x/crypto/x509roots/fallback"

	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/htmltext"
	"github.com/jdholdren/riffle/internal/icon"
	"github.com/jdholdren/riffle/internal/migrations"
	"github.com/jdholdren/riffle/internal/sqlite"
	"github.com/jdholdren/riffle/internal/sync"
	"github.com/jdholdren/riffle/internal/youtube"
	"github.com/jdholdren/riffle/logger"
)

type config struct {
	Database     string `env:"DATABASE, required"`
	LoggerFormat string `env:"LOGGER_FORMAT, default=text"`
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Parse the config
	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		log.Fatalf("error parsing config: %s", err)
	}

	slog.SetDefault(logger.New(cfg.LoggerFormat, os.Stderr))

	// Connect to the sqlite db
	dbx, err := sqlite.Open(cfg.Database)
	if err != nil {
		log.Fatalf("error opening database: %s", err)
	}
	defer dbx.Close()

	if err := migrations.Run(dbx); err != nil {
		log.Fatalf("error running migrations: %s", err)
	}

	repo := sqlite.New(dbx)
	subscriber := sync.NewSubscriber(sync.SubscriberParams{
		Fetcher:  fetch.New(fetch.DefaultTimeout),
		Icons:    icon.NewFinder(icon.DefaultTimeout),
		Channels: youtube.NewResolver(fetch.DefaultTimeout),
		Store:    repo,
		Text:     htmltext.Converter{},
	})

	res, err := sync.NewOrchestrator(repo, subscriber).SyncAll(ctx)
	if err != nil {
		log.Fatalf("error syncing: %s", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		log.Fatalf("error writing result: %s", err)
	}

	if res.Synced == 0 && res.Errors > 0 {
		os.Exit(1)
	}
}
