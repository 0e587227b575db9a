package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

// Role classifies a user. The set is fixed.
type Role string

// Roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is a registered library user. Users are provisioned by an operator.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"first_name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 8

// NewUser is the input for provisioning a user.
type NewUser struct {
	FirstName string
	Email     string
	Password  string
	Role      Role
}

// Normalize trims the name and lower-cases the e-mail address.
func (n *NewUser) Normalize() {
	n.FirstName = strings.TrimSpace(n.FirstName)
	n.Email = strings.ToLower(strings.TrimSpace(n.Email))
}

// Validate checks the provisioning input.
func (n NewUser) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&n.Email, validation.Required, is.EmailFormat),
		validation.Field(&n.Password, validation.Required, validation.Length(MinPasswordLength, 72)),
		validation.Field(&n.Role, validation.Required, validation.In(RoleAdmin, RoleUser)),
	)
}
