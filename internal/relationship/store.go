package relationship

import (
	"context"
)

// StateKind is the phase of an item query.
type StateKind int

const (
	StateLoading StateKind = iota
	StateError
	StateReady
)

func (k StateKind) String() string {
	switch k {
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	default:
		return "loading"
	}
}

// ItemsState is the result of the latest item query.
type ItemsState struct {
	Kind    StateKind
	Message string
	Items   map[string]Item
}

// Query identifies the items a field needs: the related records of one owner's field.
type Query struct {
	Selection   string
	ForeignList string
	OwnerID     string
	Field       string
	IDs         IDSet
}

// FetchRequest is an issued query. Gen is the token that ties its result back to the store.
type FetchRequest struct {
	Gen       uint64
	ListKey   string
	Selection string
	OwnerID   string
	Field     string
	IDs       []string
}

// FetchResult carries a completed query back to the store.
type FetchResult struct {
	Gen   uint64
	Items []Item
	Err   error
}

// Store holds fetched items keyed by id. It is driven from a single event loop and is not safe
// for concurrent use.
type Store struct {
	gen       uint64
	listKey   string
	selection string
	ids       IDSet
	known     map[string]Item
	state     ItemsState
}

func NewStore() *Store {
	return &Store{state: ItemsState{Kind: StateLoading}}
}

// Query starts a new generation for q. It returns the request to run, or nil when the state
// could be settled without a fetch: an empty id set, or ids that are all already known under the
// same selection.
func (s *Store) Query(q Query) *FetchRequest {
	s.gen++
	if q.Selection != s.selection || q.ForeignList != s.listKey {
		s.known = nil
	}
	s.listKey = q.ForeignList
	s.selection = q.Selection
	s.ids = q.IDs

	if q.IDs.Len() == 0 {
		s.state = ItemsState{Kind: StateReady, Items: map[string]Item{}}
		return nil
	}
	if items, ok := s.cover(q.IDs); ok {
		s.state = ItemsState{Kind: StateReady, Items: items}
		return nil
	}
	s.state = ItemsState{Kind: StateLoading}
	return &FetchRequest{
		Gen:       s.gen,
		ListKey:   q.ForeignList,
		Selection: q.Selection,
		OwnerID:   q.OwnerID,
		Field:     q.Field,
		IDs:       q.IDs.Slice(),
	}
}

// Resolve applies res if it answers the latest request. Stale results return false.
func (s *Store) Resolve(res FetchResult) bool {
	if res.Gen != s.gen {
		return false
	}
	if res.Err != nil {
		s.state = ItemsState{Kind: StateError, Message: (&FetchError{List: s.listKey, Err: res.Err}).Error()}
		return true
	}
	byID := make(map[string]Item, len(res.Items))
	for _, it := range res.Items {
		byID[it.ID] = it
	}
	var missing []string
	for _, id := range s.ids.Slice() {
		if _, ok := byID[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		s.state = ItemsState{Kind: StateError, Message: (&FetchError{List: s.listKey, Missing: missing}).Error()}
		return true
	}
	s.known = byID
	s.state = ItemsState{Kind: StateReady, Items: s.restrict()}
	return true
}

// Set replaces the known items. Used by inline create, connect and edit to inject records
// without a refetch.
func (s *Store) Set(items map[string]Item) {
	s.known = make(map[string]Item, len(items))
	for id, it := range items {
		s.known[id] = it
	}
	if s.state.Kind == StateReady {
		s.state.Items = s.restrict()
	}
}

// Put merges items into the known mapping.
func (s *Store) Put(items ...Item) {
	next := make(map[string]Item, len(s.known)+len(items))
	for id, it := range s.known {
		next[id] = it
	}
	for _, it := range items {
		next[it.ID] = it
	}
	s.Set(next)
}

// learnSorts records confirmed sort values.
func (s *Store) learnSorts(updates []Update) {
	if len(updates) == 0 || s.known == nil {
		return
	}
	next := make(map[string]Item, len(s.known))
	for id, it := range s.known {
		next[id] = it
	}
	for _, u := range updates {
		it, ok := next[u.ID]
		if !ok {
			continue
		}
		if sort, ok := u.Data[SortField].(int); ok {
			next[u.ID] = it.withSort(sort)
		}
	}
	s.Set(next)
}

// State returns the current state. Ready items are a copy.
func (s *Store) State() ItemsState {
	st := s.state
	if st.Items != nil {
		st.Items = copyItems(st.Items)
	}
	return st
}

// Items returns the ready mapping, or nil while loading or failed.
func (s *Store) Items() map[string]Item {
	if s.state.Kind != StateReady {
		return nil
	}
	return copyItems(s.state.Items)
}

func (s *Store) cover(ids IDSet) (map[string]Item, bool) {
	if s.known == nil {
		return nil, false
	}
	out := make(map[string]Item, ids.Len())
	for _, id := range ids.Slice() {
		it, ok := s.known[id]
		if !ok {
			return nil, false
		}
		out[id] = it
	}
	return out, true
}

func (s *Store) restrict() map[string]Item {
	out := make(map[string]Item, s.ids.Len())
	for _, id := range s.ids.Slice() {
		if it, ok := s.known[id]; ok {
			out[id] = it
		}
	}
	return out
}

func copyItems(in map[string]Item) map[string]Item {
	out := make(map[string]Item, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Fetch runs req against src.
func Fetch(ctx context.Context, src DataSource, req FetchRequest) FetchResult {
	items, err := src.FetchItems(ctx, req.ListKey, req.Selection, req.IDs)
	return FetchResult{Gen: req.Gen, Items: items, Err: err}
}
