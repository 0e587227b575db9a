package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/model"
)

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(model.DateLayout, s)
	require.NoError(t, err)
	return d
}

func seedUser(t *testing.T, db *sql.DB, firstName, email string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), db, firstName, email, "not-a-real-hash", model.RoleUser)
	require.NoError(t, err)
	return u
}

func seedItem(t *testing.T, db *sql.DB, name, author string) *model.Item {
	t.Helper()
	item, err := AddItem(context.Background(), db, model.NewItem{
		Name:         name,
		AuthorName:   author,
		SerialNumber: "SN-" + name,
		Type:         model.ItemTypeBook,
		AddedDate:    date(t, "2024-01-01"),
	})
	require.NoError(t, err)
	return item
}
