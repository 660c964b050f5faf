package relationship

import (
	"fmt"
	"strings"
)

// ResolutionError reports a configured field path that the related list does not have.
type ResolutionError struct {
	List string
	Path string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("relationship: list %s has no field %q", e.List, e.Path)
}

// FetchError reports a failed item query or unresolved identifiers.
type FetchError struct {
	List    string
	Missing []string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unable to load related %s: %v", e.List, e.Err)
	}
	return fmt.Sprintf("unable to resolve related %s: %s", e.List, strings.Join(e.Missing, ", "))
}

func (e *FetchError) Unwrap() error { return e.Err }

// PersistError reports a failed reorder batch.
type PersistError struct {
	List    string
	Updates int
	Err     error
}

func (e *PersistError) Error() string {
	return fmt.Sprintf("persist order of %d %s: %v", e.Updates, e.List, e.Err)
}

func (e *PersistError) Unwrap() error { return e.Err }
