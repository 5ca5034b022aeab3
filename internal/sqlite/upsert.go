package sqlite

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/riffle/internal/riffle"
)

// Upsert stores a normalized feed fetched from sourceURL: the channel and all
// of its items go in one transaction, so a failure leaves nothing behind.
//
// A feed that does not advertise a site link is keyed by sourceURL.
func (r Repo) Upsert(ctx context.Context, feed riffle.Feed, sourceURL string) (riffle.UpsertResult, error) {
	now := r.now()

	ch := feed.Channel
	if ch.Link == "" {
		ch.Link = sourceURL
	}
	ch.FeedURL = sourceURL
	ch.SavedAt = now.UnixMilli()

	var res riffle.UpsertResult
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		saved, err := upsertChannel(ctx, tx, ch)
		if err != nil {
			return err
		}

		counts, err := upsertItems(ctx, tx, saved.Link, feed.Items, now)
		if err != nil {
			return err
		}

		res = riffle.UpsertResult{
			Channel:   saved,
			Inserted:  counts.inserted,
			Updated:   counts.updated,
			Unchanged: counts.unchanged,
		}
		return nil
	})
	if err != nil {
		return riffle.UpsertResult{}, err
	}

	return res, nil
}
