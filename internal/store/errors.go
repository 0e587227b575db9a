package store

import (
	"errors"
	"fmt"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Error kinds returned by the store. Callers classify failures with errors.Is.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound marks a reference to an author, item, user or loan that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation that would break a circulation invariant.
	ErrConflict = errors.New("conflict")
	// ErrStore marks a backing store failure.
	ErrStore = errors.New("store failure")
)

func validationError(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStore, err)
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}
