package relationship

import (
	"fmt"
	"strings"
)

// IDSet is an immutable set of record identifiers. Insertion order is kept as a stable
// traversal order; it is never used as display order.
type IDSet struct {
	ids []string
}

// NewIDSet builds a set, dropping empty and duplicate ids.
func NewIDSet(ids ...string) IDSet {
	var s IDSet
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		s.ids = append(s.ids, id)
	}
	return s
}

func (s IDSet) Len() int { return len(s.ids) }

func (s IDSet) Has(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Slice returns a copy of the ids in traversal order.
func (s IDSet) Slice() []string {
	return append([]string(nil), s.ids...)
}

// With returns a new set that also contains ids.
func (s IDSet) With(ids ...string) IDSet {
	return NewIDSet(append(s.Slice(), ids...)...)
}

// Without returns a new set minus id.
func (s IDSet) Without(id string) IDSet {
	out := IDSet{}
	for _, v := range s.ids {
		if v != id {
			out.ids = append(out.ids, v)
		}
	}
	return out
}

// Equal reports set equality, ignoring order.
func (s IDSet) Equal(o IDSet) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, id := range s.ids {
		if !o.Has(id) {
			return false
		}
	}
	return true
}

// InlineFields configures an inline create or edit sub-form.
type InlineFields struct {
	Fields []string
}

// DisplayOptions controls what a card shows and which inline modes are available.
type DisplayOptions struct {
	CardFields    []string
	InlineCreate  *InlineFields
	InlineConnect bool
	InlineEdit    *InlineFields
}

// Value is the relationship field's current value, owned by the enclosing session.
type Value struct {
	CurrentIDs       IDSet
	ItemBeingCreated bool
	ItemsBeingEdited IDSet
	DisplayOptions   DisplayOptions
}

// UnfinishedError reports inline sub-forms that are still open when the owner is saved.
type UnfinishedError struct {
	ForeignLabel string
	OwnerLabel   string
}

func (e *UnfinishedError) Error() string {
	return fmt.Sprintf("You must finish creating and editing any related %s before saving the %s",
		strings.ToLower(e.ForeignLabel), strings.ToLower(e.OwnerLabel))
}

// Validate fails while an inline create or edit is still in progress.
func (v Value) Validate(foreignLabel, ownerLabel string) error {
	if v.ItemBeingCreated || v.ItemsBeingEdited.Len() > 0 {
		return &UnfinishedError{ForeignLabel: foreignLabel, OwnerLabel: ownerLabel}
	}
	return nil
}
