package model

import (
	"fmt"
	"time"
)

// DefaultLoanPeriod is the due date offset proposed when issuing an item.
const DefaultLoanPeriod = 15 * 24 * time.Hour

// Loan records one lending of an item to a user. A loan with a nil
// ReturnDate is open.
type Loan struct {
	ID         int64      `json:"id"`
	ItemID     int64      `json:"item_id"`
	UserID     int64      `json:"user_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    *time.Time `json:"due_date,omitempty"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`

	// Joined fields (not always populated).
	ItemName     string `json:"item_name,omitempty"`
	BorrowerName string `json:"borrower_name,omitempty"`
}

// Open reports whether the item has not been returned yet.
func (l *Loan) Open() bool {
	return l.ReturnDate == nil
}

// Confirmation is the human-readable outcome of issuing or returning the loan.
func (l *Loan) Confirmation() string {
	if l.Open() {
		msg := fmt.Sprintf("Item '%s' issued to '%s' on %s", l.ItemName, l.BorrowerName, l.IssueDate.Format(DateLayout))
		if l.DueDate != nil {
			msg += fmt.Sprintf(", due %s", l.DueDate.Format(DateLayout))
		}
		return msg + "."
	}
	return fmt.Sprintf("Item '%s' returned by '%s' on %s.", l.ItemName, l.BorrowerName, l.ReturnDate.Format(DateLayout))
}
