package repository

import (
	"errors"
	"time"
)

// ErrNotFound is returned by batch writes that reference a missing record.
var ErrNotFound = errors.New("record not found")

// Record represents a records row. Data holds the list-specific field values; Sort is kept in its
// own column so lists can be ordered in SQL.
type Record struct {
	ID        string
	ListKey   string
	Data      map[string]any
	Sort      int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Patch is one entry of a batched update. A "sort" key updates the sort column; every other key
// is merged into Data.
type Patch struct {
	ID   string
	Data map[string]any
}

// Link represents a relationships row.
type Link struct {
	OwnerID   string
	Field     string
	RelatedID string
	Position  int
}
