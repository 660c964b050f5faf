package relationship

import (
	"context"
	"fmt"
)

// SortField is the record attribute that persists display order.
const SortField = "sort"

// Item is one fetched related record: its id, its stored sort value and the selected field values.
type Item struct {
	ID   string
	Sort int
	Data map[string]any
}

// Get returns a selected field value.
func (it Item) Get(path string) any {
	if path == "id" {
		return it.ID
	}
	if path == SortField {
		return it.Sort
	}
	return it.Data[path]
}

// Label renders the item's label field, falling back to its id.
func (it Item) Label(labelField string) string {
	if v, ok := it.Data[labelField]; ok && v != nil {
		if s := fmt.Sprint(v); s != "" {
			return s
		}
	}
	return it.ID
}

// withSort returns a copy carrying a new sort value.
func (it Item) withSort(sort int) Item {
	it.Sort = sort
	return it
}

// Update is one entry of a batched mutation.
type Update struct {
	ID   string
	Data map[string]any
}

// DataSource is the query and batched mutation capability the engine consumes.
type DataSource interface {
	FetchItems(ctx context.Context, listKey, selection string, ids []string) ([]Item, error)
	UpdateMany(ctx context.Context, listKey string, updates []Update) error
}
