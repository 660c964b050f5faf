package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/jask/relcards/internal/database/repository"
	"github.com/jask/relcards/internal/relationship"
)

// ItemSource serves related records to relationship fields. It satisfies relationship.DataSource.
type ItemSource struct {
	Records *repository.RecordRepo
}

var _ relationship.DataSource = (*ItemSource)(nil)

// FetchItems loads the records of listKey among ids, keeping only the selected fields.
func (s *ItemSource) FetchItems(ctx context.Context, listKey, selection string, ids []string) ([]relationship.Item, error) {
	recs, err := s.Records.ListByIDs(ctx, listKey, ids)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", listKey, err)
	}
	paths := relationship.SelectionPaths(selection)
	out := make([]relationship.Item, 0, len(recs))
	for _, rec := range recs {
		out = append(out, project(rec, paths))
	}
	return out, nil
}

// UpdateMany applies a batch of updates to listKey in one transaction.
func (s *ItemSource) UpdateMany(ctx context.Context, listKey string, updates []relationship.Update) error {
	patches := make([]repository.Patch, len(updates))
	for i, u := range updates {
		patches[i] = repository.Patch{ID: u.ID, Data: u.Data}
	}
	return s.Records.UpdateMany(ctx, listKey, patches)
}

// CreateItem inserts a new record at the end of listKey's sort order.
func (s *ItemSource) CreateItem(ctx context.Context, listKey string, data map[string]any) (relationship.Item, error) {
	next, err := s.Records.NextSort(ctx, listKey)
	if err != nil {
		return relationship.Item{}, err
	}
	rec := repository.Record{ID: uuid.NewString(), ListKey: listKey, Sort: next, Data: data}
	if err := s.Records.Insert(ctx, rec); err != nil {
		return relationship.Item{}, fmt.Errorf("create %s: %w", listKey, err)
	}
	return toItem(rec), nil
}

// UpdateItem merges data into an existing record and returns it as stored.
func (s *ItemSource) UpdateItem(ctx context.Context, listKey, id string, data map[string]any) (relationship.Item, error) {
	if err := s.Records.UpdateMany(ctx, listKey, []repository.Patch{{ID: id, Data: data}}); err != nil {
		return relationship.Item{}, err
	}
	rec, err := s.Records.Get(ctx, id)
	if err != nil {
		return relationship.Item{}, err
	}
	if rec == nil {
		return relationship.Item{}, fmt.Errorf("update %s %s: %w", listKey, id, repository.ErrNotFound)
	}
	return toItem(*rec), nil
}

// Search returns records of listKey whose label fuzzily matches query, closest first. Records in
// exclude are skipped; an empty query lists records in sort order.
func (s *ItemSource) Search(ctx context.Context, listKey, labelField, query string, exclude relationship.IDSet, limit int) ([]relationship.Item, error) {
	recs, err := s.Records.List(ctx, listKey)
	if err != nil {
		return nil, err
	}
	query = strings.TrimSpace(query)

	type hit struct {
		item relationship.Item
		dist int
	}
	var hits []hit
	for _, rec := range recs {
		if exclude.Has(rec.ID) {
			continue
		}
		it := toItem(rec)
		label := it.Label(labelField)
		if query != "" && !fuzzy.MatchFold(query, label) {
			continue
		}
		dist := 0
		if query != "" {
			dist = levenshtein.ComputeDistance(strings.ToLower(query), strings.ToLower(label))
		}
		hits = append(hits, hit{item: it, dist: dist})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })

	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	out := make([]relationship.Item, len(hits))
	for i, h := range hits {
		out[i] = h.item
	}
	return out, nil
}

func toItem(rec repository.Record) relationship.Item {
	data := make(map[string]any, len(rec.Data))
	for k, v := range rec.Data {
		data[k] = v
	}
	return relationship.Item{ID: rec.ID, Sort: rec.Sort, Data: data}
}

func project(rec repository.Record, paths []string) relationship.Item {
	data := make(map[string]any, len(paths))
	for _, p := range paths {
		if p == "id" || p == relationship.SortField {
			continue
		}
		if v, ok := rec.Data[p]; ok {
			data[p] = v
		}
	}
	return relationship.Item{ID: rec.ID, Sort: rec.Sort, Data: data}
}
