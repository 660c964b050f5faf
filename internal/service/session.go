package service

import (
	"context"
	"fmt"

	"github.com/jask/relcards/internal/database/repository"
	"github.com/jask/relcards/internal/relationship"
)

// Session is the owning form of one relationship field: it holds the authoritative value and
// persists the links on Save.
type Session struct {
	Links *repository.RelationshipRepo

	cfg   relationship.Config
	value relationship.Value
	saved relationship.IDSet
}

// OpenSession loads the current links of cfg's owner field.
func OpenSession(ctx context.Context, links *repository.RelationshipRepo, cfg relationship.Config, opts relationship.DisplayOptions) (*Session, error) {
	ids, err := links.IDs(ctx, cfg.OwnerID, cfg.Field.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s.%s links: %w", cfg.Owner.Key, cfg.Field.Path, err)
	}
	set := relationship.NewIDSet(ids...)
	return &Session{
		Links: links,
		cfg:   cfg,
		value: relationship.Value{CurrentIDs: set, DisplayOptions: opts},
		saved: set,
	}, nil
}

func (s *Session) Value() relationship.Value { return s.value }

// OnChange replaces the value. It is the callback handed to the field.
func (s *Session) OnChange(v relationship.Value) { s.value = v }

// Dirty reports whether the links differ from what was last saved.
func (s *Session) Dirty() bool { return !s.value.CurrentIDs.Equal(s.saved) }

// Save writes the current links. It refuses while inline forms are still open.
func (s *Session) Save(ctx context.Context) error {
	v := s.value
	if err := s.Write(ctx, v); err != nil {
		return err
	}
	s.MarkSaved(v.CurrentIDs)
	return nil
}

// Write persists the links of v without touching the session, so it can run off the event loop.
func (s *Session) Write(ctx context.Context, v relationship.Value) error {
	if err := v.Validate(s.cfg.Foreign.Plural, s.cfg.Owner.Singular); err != nil {
		return err
	}
	ids := v.CurrentIDs
	if !s.cfg.Field.Many && ids.Len() > 1 {
		return fmt.Errorf("%s.%s accepts one related %s, got %d",
			s.cfg.Owner.Key, s.cfg.Field.Path, s.cfg.Foreign.Singular, ids.Len())
	}
	if err := s.Links.Replace(ctx, s.cfg.OwnerID, s.cfg.Field.Path, ids.Slice()); err != nil {
		return fmt.Errorf("save %s.%s: %w", s.cfg.Owner.Key, s.cfg.Field.Path, err)
	}
	return nil
}

// MarkSaved records ids as the stored links.
func (s *Session) MarkSaved(ids relationship.IDSet) { s.saved = ids }

// ResolveOwner returns ownerID when it names a record of listKey, or the first record of listKey
// when ownerID is empty.
func ResolveOwner(ctx context.Context, records *repository.RecordRepo, listKey, ownerID string) (string, error) {
	if ownerID != "" {
		rec, err := records.Get(ctx, ownerID)
		if err != nil {
			return "", err
		}
		if rec == nil || rec.ListKey != listKey {
			return "", fmt.Errorf("no %s with id %s", listKey, ownerID)
		}
		return ownerID, nil
	}
	recs, err := records.List(ctx, listKey)
	if err != nil {
		return "", err
	}
	if len(recs) == 0 {
		return "", fmt.Errorf("no %s records; run relcards seed", listKey)
	}
	return recs[0].ID, nil
}
