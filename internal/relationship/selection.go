package relationship

import (
	"strings"

	"github.com/jask/relcards/internal/schema"
)

// ResolveSelection builds the fetch fragment covering the card fields and the inline edit fields
// of list. The id field is always selected, and so is the list's label field.
func ResolveSelection(opts DisplayOptions, list schema.List) (string, error) {
	paths := append([]string(nil), opts.CardFields...)
	if opts.InlineEdit != nil {
		paths = append(paths, opts.InlineEdit.Fields...)
	}

	seen := make(map[string]struct{}, len(paths)+2)
	var parts []string
	add := func(path string) error {
		if _, ok := seen[path]; ok {
			return nil
		}
		f, ok := list.Field(path)
		if !ok {
			return &ResolutionError{List: list.Key, Path: path}
		}
		seen[path] = struct{}{}
		parts = append(parts, f.Selection())
		return nil
	}

	for _, p := range paths {
		if err := add(p); err != nil {
			return "", err
		}
	}
	if _, ok := seen["id"]; !ok {
		seen["id"] = struct{}{}
		parts = append(parts, "id")
	}
	if list.LabelField != "" && list.LabelField != "id" {
		if err := add(list.LabelField); err != nil {
			return "", err
		}
	}
	return strings.Join(parts, "\n"), nil
}

// SelectionPaths splits a fragment back into field paths.
func SelectionPaths(selection string) []string {
	var out []string
	for _, line := range strings.Split(selection, "\n") {
		if p := strings.TrimSpace(line); p != "" {
			out = append(out, p)
		}
	}
	return out
}
