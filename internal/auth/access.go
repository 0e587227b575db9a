package auth

import (
	"context"
	"database/sql"
	"errors"

	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

// ErrInvalidCredentials is returned for any failed login. It does not tell
// an unknown e-mail apart from a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Authenticate looks up a user by e-mail and checks the password. Every
// failure path runs one bcrypt comparison, so failures take about as long
// as a wrong password.
func Authenticate(ctx context.Context, db *sql.DB, email, password string) (*model.User, error) {
	if email == "" || password == "" {
		_ = compareHash(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	user, err := store.GetUserByEmail(ctx, db, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		_ = compareHash(dummyHash, []byte(password))
		return nil, ErrInvalidCredentials
	}

	if !VerifyPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Classify returns the user's role. Anything unrecognised is treated as a
// regular user.
func Classify(user *model.User) model.Role {
	if user != nil && user.Role == model.RoleAdmin {
		return model.RoleAdmin
	}
	return model.RoleUser
}
