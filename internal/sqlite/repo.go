// Package sqlite is the sqlite-backed feed store: channels, their items and
// the user's collections, plus the ordered index scans the timeline is built
// from.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"modernc.org/sqlite"

	"github.com/jdholdren/riffle/internal/riffle"
)

// Ensure Repo implements the Repository interface
var _ riffle.Repository = Repo{}

type Repo struct {
	db  *sqlx.DB
	now func() time.Time
}

func New(db *sqlx.DB) Repo {
	return Repo{db: db, now: time.Now}
}

// Open connects to the database file at path. Writers take the lock up front
// and wait on each other instead of failing with SQLITE_BUSY.
func Open(path string) (*sqlx.DB, error) {
	dsn := fmt.Sprintf("%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	dbx, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %s", err)
	}
	return dbx, nil
}

func (r Repo) millis() int64 {
	return r.now().UnixMilli()
}

// inTx runs fn in a transaction, committing only if it returns nil.
func (r Repo) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}
	return nil
}

const (
	codeConstraintPrimaryKey = 1555
	codeConstraintUnique     = 2067
)

// isConflict reports a primary key or unique constraint violation.
func isConflict(err error) bool {
	sqliteErr := &sqlite.Error{}
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == codeConstraintPrimaryKey || code == codeConstraintUnique
}
