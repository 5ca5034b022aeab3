package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/araddon/dateparse"
	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/riffle/internal/identity"
	"github.com/jdholdren/riffle/internal/riffle"
	"github.com/jdholdren/riffle/internal/search"
)

func (r Repo) Item(ctx context.Context, id string) (riffle.Item, error) {
	const q = `SELECT * FROM items WHERE id = ?;`

	var item riffle.Item
	err := r.db.GetContext(ctx, &item, q, id)
	if errors.Is(err, sql.ErrNoRows) {
		return riffle.Item{}, riffle.ErrNotFound
	}
	if err != nil {
		return riffle.Item{}, fmt.Errorf("error fetching item: %s", err)
	}

	return item, nil
}

// AllItems retrieves _all_ items, newest first.
func (r Repo) AllItems(ctx context.Context) ([]riffle.Item, error) {
	const q = `SELECT * FROM items INDEXED BY items_by_date ORDER BY timestamp DESC, rowid DESC;`

	items := []riffle.Item{}
	if err := r.db.SelectContext(ctx, &items, q); err != nil {
		return nil, fmt.Errorf("error selecting all items: %s", err)
	}

	return items, nil
}

// UpdateItem changes the local state of an item and nothing else.
func (r Repo) UpdateItem(ctx context.Context, id string, args riffle.UpdateItemArgs) (riffle.Item, error) {
	q := sq.Update("items")
	set := false
	if args.Read != nil {
		q = q.Set("read", *args.Read)
		set = true
	}
	if args.Closed != nil {
		q = q.Set("closed", *args.Closed)
		set = true
	}
	if args.Favourite != nil {
		fav := 0
		if *args.Favourite {
			fav = 1
		}
		q = q.Set("favourite", fav)
		set = true
	}
	if !set {
		return r.Item(ctx, id)
	}
	q = q.Where(sq.Eq{"id": id})

	query, qArgs, err := q.ToSql()
	if err != nil {
		return riffle.Item{}, fmt.Errorf("error constructing sql: %s", err)
	}
	res, err := r.db.ExecContext(ctx, query, qArgs...)
	if err != nil {
		return riffle.Item{}, fmt.Errorf("error updating item: %s", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return riffle.Item{}, riffle.ErrNotFound
	}

	return r.Item(ctx, id)
}

// content is the part of an item a re-fetch is compared on.
type content struct {
	Title       string `db:"title"`
	Description string `db:"description"`
	Image       string `db:"image"`
}

type upsertCounts struct {
	inserted, updated, unchanged int
}

// upsertItems merges freshly normalized items into the channel. New items get
// default local state; known ones are only rewritten when their content moved.
func upsertItems(ctx context.Context, tx *sqlx.Tx, channelID string, items []riffle.Item, now time.Time) (upsertCounts, error) {
	const (
		selectQ = `SELECT title, description, image FROM items WHERE id = ?;`
		insertQ = `INSERT INTO items (
			id,
			channel_id,
			title,
			description,
			link,
			pub_date,
			author,
			category,
			image,
			guid,
			type,
			youtube,
			saved_at,
			timestamp,
			read,
			closed,
			favourite,
			search_tokens
		) VALUES (
			:id,
			:channel_id,
			:title,
			:description,
			:link,
			:pub_date,
			:author,
			:category,
			:image,
			:guid,
			:type,
			:youtube,
			:saved_at,
			:timestamp,
			0,
			0,
			0,
			:search_tokens
		);`
		updateQ = `UPDATE items SET
			title = :title,
			description = :description,
			link = :link,
			pub_date = :pub_date,
			author = :author,
			category = :category,
			image = :image,
			search_tokens = :search_tokens
		WHERE id = :id;`
	)

	var counts upsertCounts
	for _, item := range items {
		item.ID = identity.ItemID(item.GUID, item.Link, channelID)
		item.ChannelID = channelID
		item.SearchTokens = search.Tokens(item)
		if item.Type == "" {
			item.Type = riffle.ItemTypeArticle
		}

		var existing content
		err := tx.GetContext(ctx, &existing, selectQ, item.ID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			item.SavedAt = now.UnixMilli()
			item.Timestamp = timestampFor(item.PubDate, now)
			if _, err := tx.NamedExecContext(ctx, insertQ, item); err != nil {
				return upsertCounts{}, fmt.Errorf("error inserting item: %s", err)
			}
			counts.inserted++
		case err != nil:
			return upsertCounts{}, fmt.Errorf("error fetching item: %s", err)
		case existing == (content{Title: item.Title, Description: item.Description, Image: item.Image}):
			counts.unchanged++
		default:
			if _, err := tx.NamedExecContext(ctx, updateQ, item); err != nil {
				return upsertCounts{}, fmt.Errorf("error updating item: %s", err)
			}
			counts.updated++
		}
	}

	return counts, nil
}

// timestampFor is the sortable publish time of an item, in epoch
// milliseconds. Dates that do not parse count as now.
func timestampFor(pubDate string, now time.Time) int64 {
	pubDate = strings.TrimSpace(pubDate)
	if pubDate == "" {
		return now.UnixMilli()
	}

	t, err := dateparse.ParseAny(pubDate)
	if err != nil {
		return now.UnixMilli()
	}
	return t.UnixMilli()
}
