package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
	"github.com/erazemk/knjiznica/internal/store"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, "correct horse", hash, "password must not be stored in cleartext")
	assert.True(t, VerifyPassword(hash, "correct horse"))
	assert.False(t, VerifyPassword(hash, "wrong horse"))

	other, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "hashes must be salted")
}

func TestAuthenticate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	hash, err := HashPassword("secret-password")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, database, "x", "x@example.com", hash, model.RoleUser)
	require.NoError(t, err)

	user, err := Authenticate(ctx, database, "x@example.com", "secret-password")
	require.NoError(t, err)
	assert.Equal(t, "x", user.FirstName)

	user, err = Authenticate(ctx, database, "X@Example.com", "secret-password")
	require.NoError(t, err, "e-mail lookup is case-insensitive")
	assert.Equal(t, "x@example.com", user.Email)
}

func TestAuthenticateFailuresAreIndistinguishable(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	hash, _ := HashPassword("secret-password")
	store.CreateUser(ctx, database, "x", "x@example.com", hash, model.RoleUser)

	userWrong, errWrong := Authenticate(ctx, database, "x@example.com", "wrong")
	userUnknown, errUnknown := Authenticate(ctx, database, "nobody@example.com", "wrong")

	assert.Nil(t, userWrong)
	assert.Nil(t, userUnknown)
	assert.ErrorIs(t, errWrong, ErrInvalidCredentials)
	assert.ErrorIs(t, errUnknown, ErrInvalidCredentials)
	assert.Equal(t, errWrong.Error(), errUnknown.Error())

	_, err := Authenticate(ctx, database, "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Equal(t, errUnknown.Error(), err.Error())
}

func TestAuthenticateAlwaysComparesHash(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	hash, err := HashPassword("secret-password")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, database, "x", "x@example.com", hash, model.RoleUser)
	require.NoError(t, err)

	var calls int
	orig := compareHash
	compareHash = func(h, p []byte) error {
		calls++
		return orig(h, p)
	}
	t.Cleanup(func() { compareHash = orig })

	tests := []struct {
		name, email, password string
	}{
		{"empty", "", ""},
		{"empty password", "x@example.com", ""},
		{"unknown user", "nobody@example.com", "wrong"},
		{"wrong password", "x@example.com", "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls = 0
			_, err := Authenticate(ctx, database, tt.email, tt.password)
			assert.ErrorIs(t, err, ErrInvalidCredentials)
			assert.Equal(t, 1, calls)
		})
	}
}

func TestClassify(t *testing.T) {
	assert.Equal(t, model.RoleAdmin, Classify(&model.User{Role: model.RoleAdmin}))
	assert.Equal(t, model.RoleUser, Classify(&model.User{Role: model.RoleUser}))
	assert.Equal(t, model.RoleUser, Classify(&model.User{Role: "manager"}))
	assert.Equal(t, model.RoleUser, Classify(nil))
}
