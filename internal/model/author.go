package model

import "time"

// Author is a catalog author, unique by name.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// UnknownAuthor is shown when an author id does not resolve.
const UnknownAuthor = "Unknown Author"
