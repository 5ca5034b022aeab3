package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"iter"

	sq "github.com/Masterminds/squirrel"

	"github.com/jdholdren/riffle/internal/riffle"
)

// ScanItems walks one item index newest first. Nothing touches the database
// until the first pull; the read transaction lives until the caller stops
// ranging or the index runs out.
func (r Repo) ScanItems(ctx context.Context, rng riffle.IndexRange) iter.Seq2[riffle.Item, error] {
	return func(yield func(riffle.Item, error) bool) {
		query, args, err := scanQuery(rng)
		if err != nil {
			yield(riffle.Item{}, err)
			return
		}

		tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{ReadOnly: true})
		if err != nil {
			yield(riffle.Item{}, fmt.Errorf("error beginning scan: %w", err))
			return
		}
		defer tx.Rollback()

		rows, err := tx.QueryxContext(ctx, query, args...)
		if err != nil {
			yield(riffle.Item{}, fmt.Errorf("error scanning %s: %w", rng.Index, err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var item riffle.Item
			if err := rows.StructScan(&item); err != nil {
				yield(riffle.Item{}, fmt.Errorf("error reading item: %w", err))
				return
			}
			if !yield(item, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(riffle.Item{}, fmt.Errorf("error scanning %s: %w", rng.Index, err))
		}
	}
}

// scanQuery pins the walk to the named index. Ties on the timestamp fall back
// to insertion order, which every index carries as its last column.
func scanQuery(rng riffle.IndexRange) (string, []any, error) {
	q := sq.Select("*").From(fmt.Sprintf("items INDEXED BY %s", rng.Index))

	switch rng.Index {
	case riffle.IndexByChannel:
		q = q.Where(sq.Eq{"channel_id": rng.ChannelID}).OrderBy("rowid DESC")
	case riffle.IndexByDate:
		q = q.OrderBy("timestamp DESC", "rowid DESC")
	case riffle.IndexByChannelDate:
		q = q.Where(sq.Eq{"channel_id": rng.ChannelID}).OrderBy("timestamp DESC", "rowid DESC")
	case riffle.IndexByFavDate:
		q = q.Where(sq.Eq{"favourite": 1}).OrderBy("timestamp DESC", "rowid DESC")
	default:
		return "", nil, fmt.Errorf("unknown index %q", rng.Index)
	}

	query, args, err := q.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("error constructing sql: %s", err)
	}
	return query, args, nil
}
