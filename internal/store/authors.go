package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/knjiznica/internal/model"
)

// ResolveAuthor returns the id of the author with the given name, creating
// the author if it does not exist yet.
func ResolveAuthor(ctx context.Context, db *sql.DB, name string) (int64, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storeError("beginning transaction", err)
	}
	defer tx.Rollback()

	id, err := resolveAuthor(ctx, tx, name)
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, storeError("committing author", err)
	}
	return id, nil
}

// resolveAuthor inserts the author if missing and reads back its id.
// INSERT ... DO NOTHING followed by a re-select cannot produce duplicates,
// even when two writers resolve the same name.
func resolveAuthor(ctx context.Context, q querier, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, validationError(fmt.Errorf("author name is required"))
	}

	_, err := q.ExecContext(ctx,
		`INSERT INTO authors (name) VALUES (?) ON CONFLICT (name) DO NOTHING`,
		name,
	)
	if err != nil {
		return 0, storeError("creating author", err)
	}

	var id int64
	err = q.QueryRowContext(ctx, `SELECT id FROM authors WHERE name = ?`, name).Scan(&id)
	if err != nil {
		return 0, storeError("looking up author", err)
	}
	return id, nil
}

// GetAuthor returns an author by ID.
func GetAuthor(ctx context.Context, db *sql.DB, id int64) (*model.Author, error) {
	a := &model.Author{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM authors WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("getting author", err)
	}
	return a, nil
}

// GetAuthorName returns the author's name, or model.UnknownAuthor if the id
// does not resolve. It never fails.
func GetAuthorName(ctx context.Context, db *sql.DB, id int64) string {
	a, err := GetAuthor(ctx, db, id)
	if err != nil || a == nil {
		return model.UnknownAuthor
	}
	return a.Name
}

// CountAuthors returns the number of registered authors.
func CountAuthors(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM authors`).Scan(&n); err != nil {
		return 0, storeError("counting authors", err)
	}
	return n, nil
}
