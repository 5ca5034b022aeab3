package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/logger"
)

// BatchSize is how many feeds are fetched at once.
const BatchSize = 15

type (
	ChannelLister interface {
		AllChannels(ctx context.Context) ([]riffle.Channel, error)
	}

	FeedSubscriber interface {
		Subscribe(ctx context.Context, rawURL string) (riffle.UpsertResult, error)
	}
)

// Orchestrator re-syncs every stored channel.
type Orchestrator struct {
	channels   ChannelLister
	subscriber FeedSubscriber
}

func NewOrchestrator(channels ChannelLister, subscriber FeedSubscriber) Orchestrator {
	return Orchestrator{
		channels:   channels,
		subscriber: subscriber,
	}
}

// SyncAll re-subscribes every channel by its feed URL. A failing feed is
// counted and logged without stopping the others; only failing to list the
// channels is an error.
func (o Orchestrator) SyncAll(ctx context.Context) (riffle.SyncResult, error) {
	ctx = logger.Ctx(ctx, slog.String("sync_run", uuid.NewString()))

	channels, err := o.channels.AllChannels(ctx)
	if err != nil {
		return riffle.SyncResult{}, fmt.Errorf("error listing channels: %w", err)
	}

	urls := make([]string, 0, len(channels))
	for _, ch := range channels {
		if ch.FeedURL != "" {
			urls = append(urls, ch.FeedURL)
		}
	}
	slog.InfoContext(ctx, "sync started", "feeds", len(urls))

	var (
		mu  stdsync.Mutex
		res riffle.SyncResult
	)
	for start := 0; start < len(urls); start += BatchSize {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		var g errgroup.Group
		for _, u := range urls[start:min(start+BatchSize, len(urls))] {
			g.Go(func() error {
				up, err := o.subscriber.Subscribe(ctx, u)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					res.Errors++
					slog.ErrorContext(ctx, "error syncing feed", "feed_url", u, "error", err)
					return nil
				}
				res.Synced++
				res.NewItems += up.Inserted
				return nil
			})
		}
		_ = g.Wait()
	}

	slog.InfoContext(ctx, "sync finished", "synced", res.Synced, "errors", res.Errors, "new_items", res.NewItems)
	return res, nil
}

// Run syncs once straight away and then every interval until ctx is done.
func (o Orchestrator) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := o.SyncAll(ctx); err != nil && ctx.Err() == nil {
			slog.ErrorContext(ctx, "error running sync", "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
