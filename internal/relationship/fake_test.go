package relationship

import (
	"context"
	"errors"
	"fmt"

	"github.com/jask/relcards/internal/schema"
)

var errBoom = errors.New("boom")

// fakeSource is an in-memory DataSource.
type fakeSource struct {
	records   map[string]Item
	fetchErr  error
	updateErr error
	fetches   [][]string
	batches   [][]Update
}

func newFakeSource(items ...Item) *fakeSource {
	s := &fakeSource{records: map[string]Item{}}
	for _, it := range items {
		s.records[it.ID] = it
	}
	return s
}

func (s *fakeSource) FetchItems(_ context.Context, _ string, _ string, ids []string) ([]Item, error) {
	s.fetches = append(s.fetches, append([]string(nil), ids...))
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	var out []Item
	for _, id := range ids {
		if it, ok := s.records[id]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (s *fakeSource) UpdateMany(_ context.Context, _ string, updates []Update) error {
	s.batches = append(s.batches, updates)
	if s.updateErr != nil {
		return s.updateErr
	}
	for _, u := range updates {
		it, ok := s.records[u.ID]
		if !ok {
			return fmt.Errorf("no record %s", u.ID)
		}
		if sort, ok := u.Data[SortField].(int); ok {
			it.Sort = sort
		}
		s.records[u.ID] = it
	}
	return nil
}

func item(id string, sort int) Item {
	return Item{ID: id, Sort: sort, Data: map[string]any{"title": "T " + id}}
}

func ids(order []Entry) []string {
	out := make([]string, len(order))
	for i, e := range order {
		out[i] = e.ID
	}
	return out
}

func itemMap(items ...Item) map[string]Item {
	out := make(map[string]Item, len(items))
	for _, it := range items {
		out[it.ID] = it
	}
	return out
}

func testConfig(many bool) Config {
	reg := schema.Default()
	owner, _ := reg.List("Post")
	path := "sections"
	if !many {
		path = "author"
	}
	f, foreign, err := reg.Relationship("Post", path)
	if err != nil {
		panic(err)
	}
	return Config{Owner: owner, OwnerID: "post-1", Field: f, Foreign: foreign}
}

func authorOptions() DisplayOptions {
	return DisplayOptions{
		CardFields:    []string{"name", "email"},
		InlineCreate:  &InlineFields{Fields: []string{"name", "email"}},
		InlineConnect: true,
	}
}

func optionsFor(many bool) DisplayOptions {
	if many {
		return sectionOptions()
	}
	return authorOptions()
}

func sectionOptions() DisplayOptions {
	return DisplayOptions{
		CardFields:    []string{"title", "rating"},
		InlineCreate:  &InlineFields{Fields: []string{"title", "body"}},
		InlineConnect: true,
		InlineEdit:    &InlineFields{Fields: []string{"title", "body"}},
	}
}

// host plays the owning session: it keeps the value and feeds changes back into the field.
type host struct {
	value   Value
	changes int
}

func (h *host) onChange(v Value) {
	h.value = v
	h.changes++
}

// mount builds a field over src and runs its first fetch.
func mount(src *fakeSource, many bool, currentIDs ...string) (*Field, *host) {
	return mountWith(src, testConfig(many), optionsFor(many), nil, currentIDs...)
}

func mountWith(src *fakeSource, cfg Config, opts DisplayOptions, fieldOpts []Option, currentIDs ...string) (*Field, *host) {
	h := &host{value: Value{CurrentIDs: NewIDSet(currentIDs...), DisplayOptions: opts}}
	f, req, err := NewField(cfg, h.value, h.onChange, fieldOpts...)
	if err != nil {
		panic(err)
	}
	if req != nil {
		f.ApplyFetch(Fetch(context.Background(), src, *req))
	}
	return f, h
}

// sync pushes the host's value into the field and runs any fetch it asks for.
func (h *host) sync(f *Field, src *fakeSource) {
	req, err := f.SetValue(h.value)
	if err != nil {
		panic(err)
	}
	if req != nil {
		f.ApplyFetch(Fetch(context.Background(), src, *req))
	}
}
