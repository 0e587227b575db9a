package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/erazemk/knjiznica/internal/model"
)

const userColumns = `id, first_name, email, password_hash, role, created_at`

// CreateUser provisions a new user. The e-mail address must be unique.
func CreateUser(ctx context.Context, db *sql.DB, firstName, email, passwordHash string, role model.Role) (*model.User, error) {
	if !role.Valid() {
		return nil, validationError(fmt.Errorf("invalid role %q", role))
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (first_name, email, password_hash, role) VALUES (?, ?, ?, ?)`,
		firstName, strings.ToLower(email), passwordHash, string(role),
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("email %q: %w: already registered", email, ErrConflict)
	}
	if err != nil {
		return nil, storeError("creating user", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storeError("getting user id", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("getting user", err)
	}
	return u, nil
}

// GetUserByEmail returns a user by e-mail address (case-insensitive).
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`,
		strings.ToLower(strings.TrimSpace(email)),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("getting user by email", err)
	}
	return u, nil
}

// FindUsersByIdentifier returns the users matching a borrower identifier,
// which is either an e-mail address or a first name.
func FindUsersByIdentifier(ctx context.Context, db *sql.DB, identifier string) ([]model.User, error) {
	return findUsersByIdentifier(ctx, db, identifier)
}

func findUsersByIdentifier(ctx context.Context, q querier, identifier string) ([]model.User, error) {
	identifier = strings.TrimSpace(identifier)
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users
		 WHERE email = ? OR first_name = ?
		 ORDER BY id`,
		strings.ToLower(identifier), identifier,
	)
	if err != nil {
		return nil, storeError("finding users", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// ListUsers returns all users, optionally filtered by role.
func ListUsers(ctx context.Context, db *sql.DB, role model.Role) ([]model.User, error) {
	var rows *sql.Rows
	var err error

	if role != "" {
		rows, err = db.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users WHERE role = ? ORDER BY id`, string(role),
		)
	} else {
		rows, err = db.QueryContext(ctx,
			`SELECT `+userColumns+` FROM users ORDER BY id`,
		)
	}
	if err != nil {
		return nil, storeError("listing users", err)
	}
	defer rows.Close()

	return scanUsers(rows)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`,
		passwordHash, id,
	)
	if err != nil {
		return storeError("updating user password", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var role string
	if err := row.Scan(&u.ID, &u.FirstName, &u.Email, &u.PasswordHash, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = model.Role(role)
	return u, nil
}

func scanUsers(rows *sql.Rows) ([]model.User, error) {
	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, storeError("scanning user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError("reading users", err)
	}
	return users, nil
}
