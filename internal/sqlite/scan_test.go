package sqlite

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdholdren/riffle/internal/identity"
	"github.com/jdholdren/riffle/internal/riffle"
)

func scanTitles(t *testing.T, r Repo, rng riffle.IndexRange) []string {
	t.Helper()

	var titles []string
	for item, err := range r.ScanItems(context.Background(), rng) {
		require.NoError(t, err)
		titles = append(titles, item.Title)
	}
	return titles
}

func seedScan(t *testing.T, r Repo) {
	t.Helper()
	ctx := context.Background()

	_, err := r.Upsert(ctx, testFeed("https://a.com",
		testItem("https://a.com", "1", "A1", "2024-01-01T00:00:00Z"),
		testItem("https://a.com", "3", "A3", "2024-01-03T00:00:00Z"),
	), "https://a.com/feed")
	require.NoError(t, err)
	_, err = r.Upsert(ctx, testFeed("https://b.com",
		testItem("https://b.com", "2", "B2", "2024-01-02T00:00:00Z"),
		testItem("https://b.com", "4", "B4", "2024-01-04T00:00:00Z"),
	), "https://b.com/feed")
	require.NoError(t, err)

	yes := true
	_, err = r.UpdateItem(ctx, identity.ItemID("2", "https://b.com/2", "https://b.com"), riffle.UpdateItemArgs{Favourite: &yes})
	require.NoError(t, err)
	_, err = r.UpdateItem(ctx, identity.ItemID("3", "https://a.com/3", "https://a.com"), riffle.UpdateItemArgs{Favourite: &yes})
	require.NoError(t, err)
}

func TestScanItems(t *testing.T) {
	r, _ := newTestRepo(t)
	seedScan(t, r)

	tests := []struct {
		name     string
		rng      riffle.IndexRange
		expected []string
	}{
		{name: "by date", rng: riffle.IndexRange{Index: riffle.IndexByDate}, expected: []string{"B4", "A3", "B2", "A1"}},
		{name: "by channel date", rng: riffle.IndexRange{Index: riffle.IndexByChannelDate, ChannelID: "https://a.com"}, expected: []string{"A3", "A1"}},
		{name: "by fav date", rng: riffle.IndexRange{Index: riffle.IndexByFavDate}, expected: []string{"A3", "B2"}},
		{name: "by channel", rng: riffle.IndexRange{Index: riffle.IndexByChannel, ChannelID: "https://b.com"}, expected: []string{"B4", "B2"}},
		{name: "unknown channel", rng: riffle.IndexRange{Index: riffle.IndexByChannelDate, ChannelID: "https://nope"}, expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, scanTitles(t, r, tt.rng))
		})
	}
}

func TestScanItems_BreakReleasesTransaction(t *testing.T) {
	ctx := context.Background()
	r, _ := newTestRepo(t)
	seedScan(t, r)

	var first riffle.Item
	for item, err := range r.ScanItems(ctx, riffle.IndexRange{Index: riffle.IndexByDate}) {
		require.NoError(t, err)
		first = item
		break
	}
	assert.Equal(t, "B4", first.Title)

	yes := true
	_, err := r.UpdateItem(ctx, first.ID, riffle.UpdateItemArgs{Read: &yes})
	require.NoError(t, err)
}

func TestScanItems_UnknownIndex(t *testing.T) {
	r, _ := newTestRepo(t)

	var errs []error
	for _, err := range r.ScanItems(context.Background(), riffle.IndexRange{Index: "items_by_mood"}) {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	assert.ErrorContains(t, errs[0], "unknown index")
}
