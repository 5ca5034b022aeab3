package sync

import (
	"context"
	stderrs "errors"
	"fmt"
	"net/http"
	"path/filepath"
	stdsync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/riffle/internal/fetch"
	"github.com/jdholdren/riffle/internal/migrations"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/sqlite"
)

type staticLister struct {
	channels []riffle.Channel
	err      error
}

func (l staticLister) AllChannels(context.Context) ([]riffle.Channel, error) {
	return l.channels, l.err
}

// countingSubscriber fails every URL in failing and tracks how many calls
// were in flight at once.
type countingSubscriber struct {
	failing map[string]bool

	mu       stdsync.Mutex
	inFlight int
	peak     int
	seen     []string
}

func (s *countingSubscriber) Subscribe(_ context.Context, u string) (riffle.UpsertResult, error) {
	s.mu.Lock()
	s.inFlight++
	s.peak = max(s.peak, s.inFlight)
	s.seen = append(s.seen, u)
	s.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()

	if s.failing[u] {
		return riffle.UpsertResult{}, stderrs.New("boom")
	}
	return riffle.UpsertResult{Inserted: 2}, nil
}

func TestSyncAll_Counts(t *testing.T) {
	var channels []riffle.Channel
	for i := range 40 {
		channels = append(channels, riffle.Channel{Link: fmt.Sprint("site-", i), FeedURL: fmt.Sprint("feed-", i)})
	}
	// Channels without a feed URL are skipped
	channels = append(channels, riffle.Channel{Link: "orphan"})

	sub := &countingSubscriber{failing: map[string]bool{"feed-3": true, "feed-20": true, "feed-39": true}}
	res, err := NewOrchestrator(staticLister{channels: channels}, sub).SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, riffle.SyncResult{Synced: 37, Errors: 3, NewItems: 74}, res)
	assert.Len(t, sub.seen, 40)
	assert.LessOrEqual(t, sub.peak, BatchSize)
}

func TestSyncAll_ListError(t *testing.T) {
	_, err := NewOrchestrator(staticLister{err: stderrs.New("locked")}, &countingSubscriber{}).SyncAll(context.Background())
	require.Error(t, err)
}

func TestSyncAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sub := &countingSubscriber{}
	_, err := NewOrchestrator(staticLister{channels: []riffle.Channel{{Link: "a", FeedURL: "a"}}}, sub).SyncAll(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sub.seen)
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sub := &countingSubscriber{}
	o := NewOrchestrator(staticLister{channels: []riffle.Channel{{Link: "a", FeedURL: "a"}}}, sub)

	done := make(chan error)
	go func() { done <- o.Run(ctx, time.Hour) }()

	require.Eventually(t, func() bool {
		sub.mu.Lock()
		defer sub.mu.Unlock()
		return len(sub.seen) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestSyncAll_AgainstStore(t *testing.T) {
	ctx := context.Background()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "riffle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))
	repo := sqlite.New(dbx)

	healthy := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(testRSSFeed))
	})
	gone := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGone)
	})

	sub := newSubscriber(fetch.New(time.Second), fakeIcons{reachable: true}, fakeResolver{}, repo)
	_, err = sub.Subscribe(ctx, healthy.URL)
	require.NoError(t, err)

	// A channel whose feed has since disappeared
	_, err = repo.Upsert(ctx, riffle.Feed{Channel: riffle.Channel{Link: "https://gone.example", Title: "Gone"}}, gone.URL)
	require.NoError(t, err)

	res, err := NewOrchestrator(repo, sub).SyncAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, riffle.SyncResult{Synced: 1, Errors: 1, NewItems: 0}, res)

	items, err := repo.AllItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
}
