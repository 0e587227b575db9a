package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/knjiznica/internal/model"
)

const loanSelect = `SELECT l.id, l.item_id, l.user_id, l.issue_date, l.due_date, l.return_date, l.created_at,
	       i.name AS item_name, u.first_name AS borrower_name
	FROM loans l
	JOIN items i ON i.id = l.item_id
	JOIN users u ON u.id = l.user_id`

// IsAvailable reports whether an item has no open loan. It is the only
// place availability is derived.
func IsAvailable(ctx context.Context, q querier, itemID int64) (bool, error) {
	var open int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE item_id = ? AND return_date IS NULL`, itemID,
	).Scan(&open)
	if err != nil {
		return false, storeError("checking availability", err)
	}
	return open == 0, nil
}

// IssueItem lends an item to the borrower identified by e-mail address or
// first name. The availability check and the insert run in one transaction,
// and the open-loan index rejects any concurrent second loan. A zero dueDate
// leaves the loan without a due date.
func IssueItem(ctx context.Context, db *sql.DB, itemID int64, borrower string, issueDate, dueDate time.Time) (*model.Loan, error) {
	borrower = strings.TrimSpace(borrower)
	if borrower == "" {
		return nil, validationError(fmt.Errorf("borrower is required"))
	}
	if issueDate.IsZero() {
		return nil, validationError(fmt.Errorf("issue date is required"))
	}
	issueDate = model.Day(issueDate)

	var due *time.Time
	if !dueDate.IsZero() {
		d := model.Day(dueDate)
		if d.Before(issueDate) {
			return nil, validationError(fmt.Errorf("due date %s is before issue date %s",
				d.Format(model.DateLayout), issueDate.Format(model.DateLayout)))
		}
		due = &d
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("beginning transaction", err)
	}
	defer tx.Rollback()

	users, err := findUsersByIdentifier(ctx, tx, borrower)
	if err != nil {
		return nil, err
	}
	switch len(users) {
	case 0:
		return nil, fmt.Errorf("user %q: %w", borrower, ErrNotFound)
	case 1:
	default:
		return nil, validationError(fmt.Errorf("borrower %q matches %d users, use an e-mail address", borrower, len(users)))
	}
	userID := users[0].ID

	item, err := getItem(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil || item.DeletedAt != nil {
		return nil, fmt.Errorf("item %d: %w", itemID, ErrNotFound)
	}

	available, err := IsAvailable(ctx, tx, itemID)
	if err != nil {
		return nil, err
	}
	if !available {
		return nil, fmt.Errorf("item %d: %w: already issued, not yet returned", itemID, ErrConflict)
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO loans (item_id, user_id, issue_date, due_date) VALUES (?, ?, ?, ?)`,
		itemID, userID, issueDate, due,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("item %d: %w: already issued, not yet returned", itemID, ErrConflict)
	}
	if err != nil {
		return nil, storeError("recording loan", err)
	}

	loanID, err := result.LastInsertId()
	if err != nil {
		return nil, storeError("getting loan id", err)
	}

	loan, err := getLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("item %d: %w: already issued, not yet returned", itemID, ErrConflict)
		}
		return nil, storeError("committing loan", err)
	}
	return loan, nil
}

// ReturnItem closes the open loan of an item held by a user. It fails with
// ErrNotFound when the user never borrowed the item and with ErrConflict
// when every such loan is already closed.
func ReturnItem(ctx context.Context, db *sql.DB, itemID, userID int64, returnDate time.Time) (*model.Loan, error) {
	if returnDate.IsZero() {
		return nil, validationError(fmt.Errorf("return date is required"))
	}
	returnDate = model.Day(returnDate)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeError("beginning transaction", err)
	}
	defer tx.Rollback()

	var loanID int64
	var issueDate time.Time
	err = tx.QueryRowContext(ctx,
		`SELECT id, issue_date FROM loans
		 WHERE item_id = ? AND user_id = ? AND return_date IS NULL`,
		itemID, userID,
	).Scan(&loanID, &issueDate)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, noOpenLoan(ctx, tx, itemID, userID)
	}
	if err != nil {
		return nil, storeError("finding open loan", err)
	}

	if returnDate.Before(model.Day(issueDate)) {
		return nil, validationError(fmt.Errorf("return date %s is before issue date %s",
			returnDate.Format(model.DateLayout), issueDate.Format(model.DateLayout)))
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE loans SET return_date = ? WHERE id = ? AND return_date IS NULL`,
		returnDate, loanID,
	)
	if err != nil {
		return nil, storeError("closing loan", err)
	}

	loan, err := getLoan(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, storeError("committing return", err)
	}
	return loan, nil
}

// noOpenLoan classifies a return without an open loan.
func noOpenLoan(ctx context.Context, q querier, itemID, userID int64) error {
	var closed int
	err := q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM loans WHERE item_id = ? AND user_id = ?`,
		itemID, userID,
	).Scan(&closed)
	if err != nil {
		return storeError("checking loan history", err)
	}
	if closed > 0 {
		return fmt.Errorf("item %d, user %d: %w: already returned", itemID, userID, ErrConflict)
	}
	return fmt.Errorf("open loan for item %d, user %d: %w", itemID, userID, ErrNotFound)
}

// GetLoan returns a loan by ID.
func GetLoan(ctx context.Context, db *sql.DB, id int64) (*model.Loan, error) {
	return getLoan(ctx, db, id)
}

func getLoan(ctx context.Context, q querier, id int64) (*model.Loan, error) {
	loan, err := scanLoan(q.QueryRowContext(ctx, loanSelect+` WHERE l.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("loan %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, storeError("getting loan", err)
	}
	return loan, nil
}

// ListLoans returns loans, newest first, optionally filtered by item, by
// user and to open loans only.
func ListLoans(ctx context.Context, db *sql.DB, itemID, userID int64, openOnly bool) ([]model.Loan, error) {
	query := loanSelect + ` WHERE 1=1`
	var args []any

	if itemID > 0 {
		query += ` AND l.item_id = ?`
		args = append(args, itemID)
	}
	if userID > 0 {
		query += ` AND l.user_id = ?`
		args = append(args, userID)
	}
	if openOnly {
		query += ` AND l.return_date IS NULL`
	}

	query += ` ORDER BY l.issue_date DESC, l.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeError("listing loans", err)
	}
	defer rows.Close()

	var loans []model.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, storeError("scanning loan", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("listing loans", err)
	}
	return loans, nil
}

func scanLoan(row rowScanner) (*model.Loan, error) {
	l := &model.Loan{}
	if err := row.Scan(&l.ID, &l.ItemID, &l.UserID, &l.IssueDate, &l.DueDate, &l.ReturnDate, &l.CreatedAt,
		&l.ItemName, &l.BorrowerName); err != nil {
		return nil, err
	}
	return l, nil
}
