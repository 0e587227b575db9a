package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/knjiznica/internal/model"
)

const itemColumns = `i.id, i.name, i.author_id, i.serial_number, i.type, i.added_date,
	i.cover_mime, i.created_at, i.deleted_at`

// AddItem adds an item to the catalog, registering its author on first
// reference. Author resolution and the item insert are one transaction.
func AddItem(ctx context.Context, db *sql.DB, in model.NewItem) (*model.Item, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, validationError(err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("beginning transaction", err)
	}
	defer tx.Rollback()

	authorID, err := resolveAuthor(ctx, tx, in.AuthorName)
	if err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO items (name, author_id, serial_number, type, added_date)
		 VALUES (?, ?, ?, ?, ?)`,
		in.Name, authorID, in.SerialNumber, string(in.Type), in.AddedDate,
	)
	if err != nil {
		return nil, storeError("creating item", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storeError("getting item id", err)
	}

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("committing item", err)
	}
	return item, nil
}

// GetItem returns an item by ID, including soft-deleted items.
func GetItem(ctx context.Context, db *sql.DB, id int64) (*model.Item, error) {
	return getItem(ctx, db, id)
}

func getItem(ctx context.Context, q querier, id int64) (*model.Item, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items i WHERE i.id = ?`, id,
	)
	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("getting item", err)
	}
	return item, nil
}

// DeleteItem removes an item from the catalog. Items on loan cannot be
// deleted. The item row is soft-deleted so that its loan history stays valid.
func DeleteItem(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return storeError("beginning transaction", err)
	}
	defer tx.Rollback()

	item, err := getItem(ctx, tx, id)
	if err != nil {
		return err
	}
	if item == nil || item.DeletedAt != nil {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}

	available, err := IsAvailable(ctx, tx, id)
	if err != nil {
		return err
	}
	if !available {
		return fmt.Errorf("cannot delete item %d: %w: item currently on loan", id, ErrConflict)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE items SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`, id,
	)
	if err != nil {
		return storeError("deleting item", err)
	}

	if err := tx.Commit(); err != nil {
		return storeError("committing item deletion", err)
	}
	return nil
}

// ListItems returns every catalog item with its author name and the number
// of open loans, in insertion order. With issuedOnly, only items currently
// on loan are returned.
func ListItems(ctx context.Context, db *sql.DB, issuedOnly bool) ([]model.ItemView, error) {
	query := `SELECT ` + itemColumns + `, a.name,
	                 (SELECT COUNT(*) FROM loans l WHERE l.item_id = i.id AND l.return_date IS NULL) AS issued_status
	          FROM items i
	          JOIN authors a ON a.id = i.author_id
	          WHERE i.deleted_at IS NULL`
	if issuedOnly {
		query += ` AND EXISTS (SELECT 1 FROM loans l WHERE l.item_id = i.id AND l.return_date IS NULL)`
	}
	query += ` ORDER BY i.id`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storeError("listing items", err)
	}
	defer rows.Close()

	var views []model.ItemView
	for rows.Next() {
		var v model.ItemView
		var coverMime sql.NullString
		var itemType string
		if err := rows.Scan(&v.ID, &v.Name, &v.AuthorID, &v.SerialNumber, &itemType, &v.AddedDate,
			&coverMime, &v.CreatedAt, &v.DeletedAt, &v.AuthorName, &v.IssuedStatus); err != nil {
			return nil, storeError("scanning item", err)
		}
		v.Type = model.ItemType(itemType)
		v.CoverMime = coverMime.String
		views = append(views, v)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("listing items", err)
	}
	return views, nil
}

// SearchItems returns items whose name contains substr, ignoring case
// (Unicode, through the casefold function registered by package db).
// An empty substring matches every item. Author names are not joined.
func SearchItems(ctx context.Context, db *sql.DB, substr string) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items i
		 WHERE i.deleted_at IS NULL AND instr(casefold(i.name), ?) > 0
		 ORDER BY i.id`,
		strings.ToLower(substr),
	)
	if err != nil {
		return nil, storeError("searching items", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, storeError("scanning item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("searching items", err)
	}
	return items, nil
}

// SetItemCover stores the cover image of an item.
func SetItemCover(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET cover = ?, cover_mime = ? WHERE id = ? AND deleted_at IS NULL`,
		image, mime, id,
	)
	if err != nil {
		return storeError("setting item cover", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	return nil
}

// GetItemCover returns an item's cover image and MIME type. Both are empty
// when the item has no cover.
func GetItemCover(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT cover, cover_mime FROM items WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&image, &mime)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", fmt.Errorf("item %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, "", storeError("getting item cover", err)
	}
	return image, mime.String, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var coverMime sql.NullString
	var itemType string
	if err := row.Scan(&item.ID, &item.Name, &item.AuthorID, &item.SerialNumber, &itemType,
		&item.AddedDate, &coverMime, &item.CreatedAt, &item.DeletedAt); err != nil {
		return nil, err
	}
	item.Type = model.ItemType(itemType)
	item.CoverMime = coverMime.String
	return item, nil
}
