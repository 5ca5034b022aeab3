package seed

import (
	"context"
	stderrs "errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/riffle/internal/migrations"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/sqlite"
)

const testSeed = `
- url: https://go.dev/blog/feed.atom
  collections: [Go, News]
- url: " https://example.com/rss "
  collections: [news]
- url: ""
- url: https://broken.example/feed
  collections: [Broken]
`

type storeSubscriber struct {
	repo    sqlite.Repo
	failing map[string]bool
}

func (s storeSubscriber) Subscribe(ctx context.Context, u string) (riffle.UpsertResult, error) {
	if s.failing[u] {
		return riffle.UpsertResult{}, stderrs.New("HTTP 500")
	}
	return s.repo.Upsert(ctx, riffle.Feed{Channel: riffle.Channel{Link: u, Title: u}}, u)
}

func writeSeed(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	entries, err := Load(writeSeed(t, testSeed))
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{URL: "https://go.dev/blog/feed.atom", Collections: []string{"Go", "News"}},
		{URL: "https://example.com/rss", Collections: []string{"news"}},
		{URL: "https://broken.example/feed", Collections: []string{"Broken"}},
	}, entries)

	_, err = Load(writeSeed(t, "url: [not a list"))
	require.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestApply(t *testing.T) {
	ctx := context.Background()

	dbx, err := sqlite.Open(filepath.Join(t.TempDir(), "riffle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))
	repo := sqlite.New(dbx)

	entries, err := Load(writeSeed(t, testSeed))
	require.NoError(t, err)
	sub := storeSubscriber{repo: repo, failing: map[string]bool{"https://broken.example/feed": true}}

	// Twice, to show a rerun leaves memberships alone
	require.NoError(t, Apply(ctx, entries, sub, repo))
	require.NoError(t, Apply(ctx, entries, sub, repo))

	collections, err := repo.AllCollections(ctx)
	require.NoError(t, err)
	var names []string
	for _, c := range collections {
		names = append(names, c.Name)
	}
	assert.ElementsMatch(t, []string{"Go", "News"}, names)

	goBlog, err := repo.Channel(ctx, "https://go.dev/blog/feed.atom")
	require.NoError(t, err)
	assert.ElementsMatch(t, riffle.StringList{"go", "news"}, goBlog.CollectionIDs)

	example, err := repo.Channel(ctx, "https://example.com/rss")
	require.NoError(t, err)
	assert.Equal(t, riffle.StringList{"news"}, example.CollectionIDs)

	_, err = repo.Channel(ctx, "https://broken.example/feed")
	assert.ErrorIs(t, err, riffle.ErrNotFound)
}
