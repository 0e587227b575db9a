package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ItemType is the kind of a catalog item.
type ItemType string

// Item types.
const (
	ItemTypeBook  ItemType = "Book"
	ItemTypeMovie ItemType = "Movie"
)

// DateLayout is the calendar date format used for item and loan dates.
const DateLayout = "2006-01-02"

// Item is a lendable catalog entry (book or movie).
type Item struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	AuthorID     int64      `json:"author_id"`
	SerialNumber string     `json:"serial_number"`
	Type         ItemType   `json:"type"`
	AddedDate    time.Time  `json:"added_date"`
	CoverMime    string     `json:"cover_mime,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// ItemView is an item joined with its author name and derived loan status.
type ItemView struct {
	Item
	AuthorName string `json:"author_name"`

	// IssuedStatus is the number of open loans for the item (0 or 1).
	IssuedStatus int `json:"issued_status"`
}

// Available reports whether the item has no open loan.
func (v ItemView) Available() bool {
	return v.IssuedStatus == 0
}

// NewItem is the input for adding an item to the catalog.
type NewItem struct {
	Name         string
	AuthorName   string
	SerialNumber string
	Type         ItemType
	AddedDate    time.Time
}

// Normalize trims surrounding whitespace from the text fields and truncates
// the added date to a calendar day.
func (n *NewItem) Normalize() {
	n.Name = strings.TrimSpace(n.Name)
	n.AuthorName = strings.TrimSpace(n.AuthorName)
	n.SerialNumber = strings.TrimSpace(n.SerialNumber)
	n.AddedDate = Day(n.AddedDate)
}

// Validate checks the required fields.
func (n NewItem) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.Name, validation.Required.Error("name is required")),
		validation.Field(&n.AuthorName, validation.Required.Error("author is required")),
		validation.Field(&n.SerialNumber, validation.Required.Error("serial number is required")),
		validation.Field(&n.Type, validation.Required, validation.In(ItemTypeBook, ItemTypeMovie).Error("type must be Book or Movie")),
		validation.Field(&n.AddedDate, validation.Required.Error("added date is required")),
	)
}

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
