package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/knjiznica/internal/db"
	"github.com/erazemk/knjiznica/internal/model"
)

func TestCirculationScenario(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", "alice@example.com")
	seedUser(t, database, "bob", "bob@example.com")

	dune, err := AddItem(ctx, database, model.NewItem{
		Name:         "Dune",
		AuthorName:   "Herbert",
		SerialNumber: "SF-001",
		Type:         model.ItemTypeBook,
		AddedDate:    date(t, "2024-01-01"),
	})
	require.NoError(t, err)

	loan, err := IssueItem(ctx, database, dune.ID, "alice", date(t, "2024-01-01"), date(t, "2024-01-15"))
	require.NoError(t, err)
	assert.True(t, loan.Open())
	assert.Equal(t, alice.ID, loan.UserID)
	assert.Equal(t, "alice", loan.BorrowerName)
	assert.Equal(t, "Dune", loan.ItemName)

	_, err = IssueItem(ctx, database, dune.ID, "bob", date(t, "2024-01-02"), time.Time{})
	assert.ErrorIs(t, err, ErrConflict)

	issued, err := ListItems(ctx, database, true)
	require.NoError(t, err)
	require.Len(t, issued, 1)
	assert.Equal(t, "Dune", issued[0].Name)

	returned, err := ReturnItem(ctx, database, dune.ID, alice.ID, date(t, "2024-01-10"))
	require.NoError(t, err)
	assert.False(t, returned.Open())
	assert.Equal(t, "2024-01-10", returned.ReturnDate.Format(model.DateLayout))

	issued, err = ListItems(ctx, database, true)
	require.NoError(t, err)
	assert.Empty(t, issued)

	require.NoError(t, DeleteItem(ctx, database, dune.ID))
}

func TestIssueItemPersistsDueDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedUser(t, database, "alice", "alice@example.com")
	item := seedItem(t, database, "Dune", "Herbert")

	loan, err := IssueItem(ctx, database, item.ID, "alice@example.com", date(t, "2024-01-01"), date(t, "2024-01-16"))
	require.NoError(t, err)

	stored, err := GetLoan(ctx, database, loan.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DueDate)
	assert.Equal(t, "2024-01-01", stored.IssueDate.Format(model.DateLayout))
	assert.Equal(t, "2024-01-16", stored.DueDate.Format(model.DateLayout))
	assert.Equal(t, "Item 'Dune' issued to 'alice' on 2024-01-01, due 2024-01-16.", stored.Confirmation())
}

func TestIssueItemWithoutDueDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedUser(t, database, "alice", "alice@example.com")
	item := seedItem(t, database, "Dune", "Herbert")

	loan, err := IssueItem(ctx, database, item.ID, "alice", date(t, "2024-01-01"), time.Time{})
	require.NoError(t, err)
	assert.Nil(t, loan.DueDate)
}

func TestIssueItemErrors(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	seedUser(t, database, "alice", "alice@example.com")
	seedUser(t, database, "sam", "sam.one@example.com")
	seedUser(t, database, "sam", "sam.two@example.com")
	item := seedItem(t, database, "Dune", "Herbert")
	gone := seedItem(t, database, "Gone", "Nobody")
	require.NoError(t, DeleteItem(ctx, database, gone.ID))

	day := date(t, "2024-01-01")

	tests := []struct {
		name     string
		itemID   int64
		borrower string
		due      time.Time
		want     error
	}{
		{"unknown borrower", item.ID, "mallory", time.Time{}, ErrNotFound},
		{"empty borrower", item.ID, "  ", time.Time{}, ErrValidation},
		{"ambiguous first name", item.ID, "sam", time.Time{}, ErrValidation},
		{"unknown item", 9999, "alice", time.Time{}, ErrNotFound},
		{"deleted item", gone.ID, "alice", time.Time{}, ErrNotFound},
		{"due before issue", item.ID, "alice", date(t, "2023-12-31"), ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := IssueItem(ctx, database, tt.itemID, tt.borrower, day, tt.due)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := IssueItem(ctx, database, item.ID, "sam.two@example.com", day, time.Time{})
	assert.NoError(t, err, "an e-mail address disambiguates borrowers")

	_, err = IssueItem(ctx, database, item.ID, "alice", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, ErrValidation)

	loans, _ := ListLoans(ctx, database, 0, 0, false)
	assert.Len(t, loans, 1, "failed issues must not record loans")
}

func TestConcurrentIssueAllowsOneLoan(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	borrowers := []string{"alice", "bob", "carol", "dave", "erin"}
	for _, b := range borrowers {
		seedUser(t, database, b, b+"@example.com")
	}
	item := seedItem(t, database, "Dune", "Herbert")

	day := date(t, "2024-01-01")

	var wg sync.WaitGroup
	errs := make([]error, len(borrowers))
	for i, b := range borrowers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = IssueItem(ctx, database, item.ID, b, day, time.Time{})
		}()
	}
	wg.Wait()

	var succeeded int
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrConflict)
	}
	assert.Equal(t, 1, succeeded)

	open, err := ListLoans(ctx, database, item.ID, 0, true)
	require.NoError(t, err)
	assert.Len(t, open, 1)
}

func TestConcurrentDeleteAndIssue(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	seedUser(t, database, "alice", "alice@example.com")
	day := date(t, "2024-01-01")

	for round := range 20 {
		item := seedItem(t, database, fmt.Sprintf("Dune %d", round), "Herbert")

		var wg sync.WaitGroup
		var deleteErr, issueErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			deleteErr = DeleteItem(ctx, database, item.ID)
		}()
		go func() {
			defer wg.Done()
			_, issueErr = IssueItem(ctx, database, item.ID, "alice", day, time.Time{})
		}()
		wg.Wait()

		if deleteErr == nil {
			require.Error(t, issueErr, "round %d: deleted item was issued", round)
			assert.ErrorIs(t, issueErr, ErrNotFound)
			continue
		}
		require.NoError(t, issueErr, "round %d: both calls failed", round)
		assert.ErrorIs(t, deleteErr, ErrConflict)

		open, err := ListLoans(ctx, database, item.ID, 0, true)
		require.NoError(t, err)
		assert.Len(t, open, 1)
	}
}

func TestReturnItemErrors(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", "alice@example.com")
	bob := seedUser(t, database, "bob", "bob@example.com")
	item := seedItem(t, database, "Dune", "Herbert")

	_, err := ReturnItem(ctx, database, item.ID, alice.ID, date(t, "2024-01-05"))
	assert.ErrorIs(t, err, ErrNotFound, "never borrowed")

	_, err = IssueItem(ctx, database, item.ID, "alice", date(t, "2024-01-01"), time.Time{})
	require.NoError(t, err)

	_, err = ReturnItem(ctx, database, item.ID, bob.ID, date(t, "2024-01-05"))
	assert.ErrorIs(t, err, ErrNotFound, "borrowed by someone else")

	_, err = ReturnItem(ctx, database, item.ID, alice.ID, date(t, "2023-12-01"))
	assert.ErrorIs(t, err, ErrValidation, "return before issue")

	_, err = ReturnItem(ctx, database, item.ID, alice.ID, time.Time{})
	assert.ErrorIs(t, err, ErrValidation)

	first, err := ReturnItem(ctx, database, item.ID, alice.ID, date(t, "2024-01-05"))
	require.NoError(t, err)

	_, err = ReturnItem(ctx, database, item.ID, alice.ID, date(t, "2024-01-09"))
	assert.ErrorIs(t, err, ErrConflict, "already returned")

	stored, err := GetLoan(ctx, database, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-05", stored.ReturnDate.Format(model.DateLayout), "a failed return must not touch the loan")
}

func TestReturnItemSameDay(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", "alice@example.com")
	item := seedItem(t, database, "Dune", "Herbert")

	_, err := IssueItem(ctx, database, item.ID, "alice", date(t, "2024-01-01"), time.Time{})
	require.NoError(t, err)

	loan, err := ReturnItem(ctx, database, item.ID, alice.ID, date(t, "2024-01-01"))
	require.NoError(t, err)
	assert.Equal(t, "Item 'Dune' returned by 'alice' on 2024-01-01.", loan.Confirmation())
}

func TestListLoans(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	alice := seedUser(t, database, "alice", "alice@example.com")
	bob := seedUser(t, database, "bob", "bob@example.com")
	dune := seedItem(t, database, "Dune", "Herbert")
	solaris := seedItem(t, database, "Solaris", "Lem")

	_, err := IssueItem(ctx, database, dune.ID, "alice", date(t, "2024-01-01"), time.Time{})
	require.NoError(t, err)
	_, err = ReturnItem(ctx, database, dune.ID, alice.ID, date(t, "2024-01-03"))
	require.NoError(t, err)
	_, err = IssueItem(ctx, database, dune.ID, "bob", date(t, "2024-01-04"), time.Time{})
	require.NoError(t, err)
	_, err = IssueItem(ctx, database, solaris.ID, "alice", date(t, "2024-01-05"), time.Time{})
	require.NoError(t, err)

	all, err := ListLoans(ctx, database, 0, 0, false)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "Solaris", all[0].ItemName, "newest first")

	history, err := ListLoans(ctx, database, dune.ID, 0, false)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, bob.ID, history[0].UserID)
	assert.Equal(t, alice.ID, history[1].UserID)

	aliceOpen, err := ListLoans(ctx, database, 0, alice.ID, true)
	require.NoError(t, err)
	require.Len(t, aliceOpen, 1)
	assert.Equal(t, solaris.ID, aliceOpen[0].ItemID)

	_, err = GetLoan(ctx, database, 9999)
	assert.ErrorIs(t, err, ErrNotFound)
}
