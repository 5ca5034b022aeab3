package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/riffle/internal/riffle"
)

func (r Repo) Channel(ctx context.Context, link string) (riffle.Channel, error) {
	return channel(ctx, r.db, link)
}

func channel(ctx context.Context, q sqlx.QueryerContext, link string) (riffle.Channel, error) {
	const query = `SELECT * FROM channels WHERE link = ?;`

	var ch riffle.Channel
	err := sqlx.GetContext(ctx, q, &ch, query, link)
	if errors.Is(err, sql.ErrNoRows) {
		return riffle.Channel{}, riffle.ErrNotFound
	}
	if err != nil {
		return riffle.Channel{}, fmt.Errorf("error fetching channel: %s", err)
	}

	return ch, nil
}

// AllChannels lists every channel, oldest subscription first.
func (r Repo) AllChannels(ctx context.Context) ([]riffle.Channel, error) {
	const q = `SELECT * FROM channels ORDER BY saved_at, link;`

	channels := []riffle.Channel{}
	if err := r.db.SelectContext(ctx, &channels, q); err != nil {
		return nil, fmt.Errorf("error selecting all channels: %s", err)
	}

	return channels, nil
}

// upsertChannel writes the feed metadata of a channel. The user's settings and
// the first-seen time survive an update.
func upsertChannel(ctx context.Context, tx *sqlx.Tx, ch riffle.Channel) (riffle.Channel, error) {
	const q = `INSERT INTO channels (
		link,
		title,
		description,
		language,
		pub_date,
		last_build_date,
		image,
		feed_url,
		saved_at
	) VALUES (
		:link,
		:title,
		:description,
		:language,
		:pub_date,
		:last_build_date,
		:image,
		:feed_url,
		:saved_at
	)
	ON CONFLICT(link) DO UPDATE SET
		title = excluded.title,
		description = excluded.description,
		language = excluded.language,
		pub_date = excluded.pub_date,
		last_build_date = excluded.last_build_date,
		image = excluded.image,
		feed_url = excluded.feed_url;`

	if _, err := tx.NamedExecContext(ctx, q, ch); err != nil {
		return riffle.Channel{}, fmt.Errorf("error upserting channel: %s", err)
	}

	return channel(ctx, tx, ch.Link)
}

// DeleteChannel removes the channel and every item it owns.
func (r Repo) DeleteChannel(ctx context.Context, link string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM items INDEXED BY items_by_channel WHERE channel_id = ?;`, link); err != nil {
			return fmt.Errorf("error deleting channel items: %s", err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM channels WHERE link = ?;`, link)
		if err != nil {
			return fmt.Errorf("error deleting channel: %s", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return riffle.ErrNotFound
		}

		return nil
	})
}

func (r Repo) UpdateChannelSettings(ctx context.Context, link string, args riffle.UpdateChannelSettingsArgs) (riffle.Channel, error) {
	q := sq.Update("channels")
	set := false
	if args.CustomTitle != nil {
		q = q.Set("custom_title", *args.CustomTitle)
		set = true
	}
	if args.HideOnMainFeed != nil {
		q = q.Set("hide_on_main_feed", *args.HideOnMainFeed)
		set = true
	}
	if args.CollectionIDs != nil {
		q = q.Set("collection_ids", riffle.StringList(args.CollectionIDs))
		set = true
	}
	if !set {
		return r.Channel(ctx, link)
	}
	q = q.Where(sq.Eq{"link": link})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return riffle.Channel{}, fmt.Errorf("error constructing sql: %s", err)
	}
	res, err := r.db.ExecContext(ctx, query, qArgs...)
	if err != nil {
		return riffle.Channel{}, fmt.Errorf("error updating channel settings: %s", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return riffle.Channel{}, riffle.ErrNotFound
	}

	return r.Channel(ctx, link)
}

// ToggleChannelCollection adds the channel to the collection, or takes it out
// if it is already a member. Only existing collections can be joined.
func (r Repo) ToggleChannelCollection(ctx context.Context, link, collectionID string) (riffle.Channel, error) {
	var ch riffle.Channel
	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		var err error
		ch, err = channel(ctx, tx, link)
		if err != nil {
			return err
		}

		ids := slices.Clone([]string(ch.CollectionIDs))
		if i := slices.Index(ids, collectionID); i >= 0 {
			ids = slices.Delete(ids, i, i+1)
		} else {
			if _, err := collection(ctx, tx, collectionID); err != nil {
				return err
			}
			ids = append(ids, collectionID)
		}
		if ids == nil {
			ids = []string{}
		}

		const q = `UPDATE channels SET collection_ids = ? WHERE link = ?;`
		if _, err := tx.ExecContext(ctx, q, riffle.StringList(ids), link); err != nil {
			return fmt.Errorf("error updating channel collections: %s", err)
		}
		ch.CollectionIDs = ids

		return nil
	})
	if err != nil {
		return riffle.Channel{}, err
	}

	return ch, nil
}
