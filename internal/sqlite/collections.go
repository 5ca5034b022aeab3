package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/jdholdren/riffle/internal/riffle"
)

const maxSlugLen = 50

var (
	slugStrip  = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces = regexp.MustCompile(`\s+`)
	slugDashes = regexp.MustCompile(`-+`)
)

// slugify turns a collection name into its id. Names with nothing usable in
// them get a generic slug.
func slugify(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = slugStrip.ReplaceAllString(s, "")
	s = slugSpaces.ReplaceAllString(s, "-")
	s = slugDashes.ReplaceAllString(s, "-")
	if len(s) > maxSlugLen {
		s = s[:maxSlugLen]
	}
	if s == "" || s == "-" {
		return "collection"
	}
	return s
}

func collection(ctx context.Context, q sqlx.QueryerContext, id string) (riffle.Collection, error) {
	const query = `SELECT * FROM collections WHERE id = ?;`

	var c riffle.Collection
	err := sqlx.GetContext(ctx, q, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return riffle.Collection{}, riffle.ErrNotFound
	}
	if err != nil {
		return riffle.Collection{}, fmt.Errorf("error fetching collection: %s", err)
	}

	return c, nil
}

// CreateCollection saves a new collection under a slug of its name, suffixed
// with -1, -2 and so on when the slug is taken.
func (r Repo) CreateCollection(ctx context.Context, name string) (riffle.Collection, error) {
	c := riffle.Collection{
		Name:      strings.TrimSpace(name),
		CreatedAt: r.millis(),
	}

	err := r.inTx(ctx, func(tx *sqlx.Tx) error {
		base := slugify(c.Name)
		c.ID = base
		for n := 1; ; n++ {
			_, err := collection(ctx, tx, c.ID)
			if errors.Is(err, riffle.ErrNotFound) {
				break
			}
			if err != nil {
				return err
			}
			c.ID = fmt.Sprintf("%s-%d", base, n)
		}

		const q = `INSERT INTO collections (id, name, created_at) VALUES (:id, :name, :created_at);`
		_, err := tx.NamedExecContext(ctx, q, c)
		if isConflict(err) {
			return fmt.Errorf("collection already exists: %w", riffle.ErrConflict)
		}
		if err != nil {
			return fmt.Errorf("error inserting collection: %s", err)
		}

		return nil
	})
	if err != nil {
		return riffle.Collection{}, err
	}

	return c, nil
}

func (r Repo) AllCollections(ctx context.Context) ([]riffle.Collection, error) {
	const q = `SELECT * FROM collections ORDER BY created_at, id;`

	collections := []riffle.Collection{}
	if err := r.db.SelectContext(ctx, &collections, q); err != nil {
		return nil, fmt.Errorf("error selecting collections: %s", err)
	}

	return collections, nil
}

// DeleteCollection removes the collection and takes its id out of every
// channel that referenced it.
func (r Repo) DeleteCollection(ctx context.Context, id string) error {
	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("error deleting collection: %s", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return riffle.ErrNotFound
		}

		var members []riffle.Channel
		if err := tx.SelectContext(ctx, &members, `SELECT link, collection_ids FROM channels;`); err != nil {
			return fmt.Errorf("error selecting channel collections: %s", err)
		}

		const q = `UPDATE channels SET collection_ids = ? WHERE link = ?;`
		for _, ch := range members {
			if !ch.InCollection(id) {
				continue
			}

			ids := slices.DeleteFunc(slices.Clone([]string(ch.CollectionIDs)), func(cid string) bool {
				return cid == id
			})
			if _, err := tx.ExecContext(ctx, q, riffle.StringList(ids), ch.Link); err != nil {
				return fmt.Errorf("error retracting collection from channel: %s", err)
			}
		}

		return nil
	})
}
