package schema

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Kind identifies how a field stores and renders its value.
type Kind string

const (
	KindID           Kind = "id"
	KindText         Kind = "text"
	KindInteger      Kind = "integer"
	KindStars        Kind = "stars"
	KindRelationship Kind = "relationship"
)

const defaultMaxStars = 5

// Field describes one field of a list.
type Field struct {
	Path  string
	Label string
	Kind  Kind

	// stars
	MaxStars int
	Icon     string

	// relationship
	Ref  string
	Many bool
}

// Selection is the fetch fragment for the field. Every kind selects its own path.
func (f Field) Selection() string {
	return f.Path
}

// Stars returns the configured star count, defaulting to five.
func (f Field) Stars() int {
	if f.MaxStars <= 0 {
		return defaultMaxStars
	}
	return f.MaxStars
}

// Format renders a single field value for a card.
func (f Field) Format(v any) string {
	switch f.Kind {
	case KindStars:
		n, ok := Rating(v)
		if !ok {
			return "-"
		}
		icon := f.Icon
		if icon == "" {
			icon = "★"
		}
		limit := f.Stars()
		if n > limit {
			n = limit
		}
		if n < 0 {
			n = 0
		}
		return strings.Repeat(icon, n) + strings.Repeat("☆", limit-n)
	case KindRelationship:
		switch ids := v.(type) {
		case []string:
			return strings.Join(ids, ", ")
		case []any:
			parts := make([]string, 0, len(ids))
			for _, id := range ids {
				parts = append(parts, fmt.Sprint(id))
			}
			return strings.Join(parts, ", ")
		}
	}
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

// Rating deserializes a stars value. Non-numeric values are "no rating".
func Rating(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if math.IsNaN(n) {
			return 0, false
		}
		return int(n), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// List describes a collection of records.
type List struct {
	Key        string
	Singular   string
	Plural     string
	LabelField string
	Fields     map[string]Field
}

// Field looks up a field by path.
func (l List) Field(path string) (Field, bool) {
	f, ok := l.Fields[path]
	return f, ok
}

// Paths returns field paths sorted alphabetically with id first.
func (l List) Paths() []string {
	out := make([]string, 0, len(l.Fields))
	for p := range l.Fields {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i] == "id" || out[j] == "id" {
			return out[i] == "id"
		}
		return out[i] < out[j]
	})
	return out
}

// Registry is the set of known lists.
type Registry struct {
	lists map[string]List
}

func NewRegistry(lists ...List) *Registry {
	r := &Registry{lists: make(map[string]List, len(lists))}
	for _, l := range lists {
		r.lists[l.Key] = l
	}
	return r
}

func (r *Registry) List(key string) (List, bool) {
	l, ok := r.lists[key]
	return l, ok
}

// Relationship resolves a relationship field on listKey and the list it points at.
func (r *Registry) Relationship(listKey, path string) (Field, List, error) {
	owner, ok := r.lists[listKey]
	if !ok {
		return Field{}, List{}, fmt.Errorf("schema: unknown list %q", listKey)
	}
	f, ok := owner.Fields[path]
	if !ok {
		return Field{}, List{}, fmt.Errorf("schema: list %s has no field %q", listKey, path)
	}
	if f.Kind != KindRelationship {
		return Field{}, List{}, fmt.Errorf("schema: %s.%s is not a relationship", listKey, path)
	}
	foreign, ok := r.lists[f.Ref]
	if !ok {
		return Field{}, List{}, fmt.Errorf("schema: %s.%s refers to unknown list %q", listKey, path, f.Ref)
	}
	return f, foreign, nil
}
