package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns a salted bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

// compareHash is bcrypt.CompareHashAndPassword; tests count calls to it.
var compareHash = bcrypt.CompareHashAndPassword

// VerifyPassword reports whether password matches the bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return compareHash([]byte(hash), []byte(password)) == nil
}

// dummyHash is compared against when the e-mail is unknown, so a failed
// login costs the same whether or not the account exists.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("knjiznica-dummy-password"), bcrypt.DefaultCost)
