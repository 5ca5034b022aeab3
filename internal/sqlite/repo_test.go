package sqlite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jdholdren/riffle/internal/migrations"
	"github.com/jdholdren/riffle/internal/riffle"
)

type testClock struct {
	t time.Time
}

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// newTestRepo opens a migrated store in a temp dir with a controllable clock.
func newTestRepo(t *testing.T) (Repo, *testClock) {
	t.Helper()

	dbx, err := Open(filepath.Join(t.TempDir(), "riffle.db"))
	require.NoError(t, err)
	t.Cleanup(func() { dbx.Close() })
	require.NoError(t, migrations.Run(dbx))

	clock := &testClock{t: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	r := New(dbx)
	r.now = clock.Now
	return r, clock
}

func testItem(channel, guid, title, pubDate string) riffle.Item {
	return riffle.Item{
		GUID:        guid,
		Title:       title,
		Description: title + " body",
		Link:        channel + "/" + guid,
		PubDate:     pubDate,
		Type:        riffle.ItemTypeArticle,
	}
}

func testFeed(link string, items ...riffle.Item) riffle.Feed {
	return riffle.Feed{
		Channel: riffle.Channel{
			Link:        link,
			Title:       "Channel " + link,
			Description: "about " + link,
		},
		Items: items,
	}
}
