package relationship

import "sort"

// Entry is one card in display order.
type Entry struct {
	ID   string
	Item Item
}

// DeriveOrder lists the ids of ids that have a resolved item, sorted by the item's sort value.
// Equal sort values keep the set's traversal order. Ids without an item are skipped.
func DeriveOrder(ids IDSet, items map[string]Item) []Entry {
	out := make([]Entry, 0, ids.Len())
	for _, id := range ids.Slice() {
		it, ok := items[id]
		if !ok {
			continue
		}
		out = append(out, Entry{ID: id, Item: it})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Item.Sort < out[j].Item.Sort
	})
	return out
}

// ApplyReorder moves the entry at from to position to. Out-of-range indexes leave order untouched
// and return it as is; otherwise the result is a new slice.
func ApplyReorder(order []Entry, from, to int) []Entry {
	if from < 0 || from >= len(order) || to < 0 || to >= len(order) {
		return order
	}
	out := make([]Entry, 0, len(order))
	out = append(out, order[:from]...)
	out = append(out, order[from+1:]...)
	moved := order[from]
	out = append(out[:to], append([]Entry{moved}, out[to:]...)...)
	return out
}

// SortBatch returns one sort update per entry whose index differs from its stored sort value.
func SortBatch(order []Entry) []Update {
	var out []Update
	for i, e := range order {
		if e.Item.Sort == i {
			continue
		}
		out = append(out, Update{ID: e.ID, Data: map[string]any{SortField: i}})
	}
	return out
}

func copyOrder(order []Entry) []Entry {
	if order == nil {
		return nil
	}
	return append([]Entry(nil), order...)
}
