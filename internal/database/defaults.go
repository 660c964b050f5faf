package database

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/jask/relcards/internal/database/repository"
)

func seedID(kind, name string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(kind+":"+name)).String()
}

// DemoPostID is the id of the seeded post.
func DemoPostID() string { return seedID("post", "welcome") }

// SeedDefaults ensures a demo post with sections and an author exists for new databases.
// It is idempotent and safe to run on every startup.
func SeedDefaults(ctx context.Context, db *sql.DB) error {
	records := repository.NewRecordRepo(db)
	existing, err := records.List(ctx, "Post")
	if err == nil && len(existing) > 0 {
		return nil
	}

	sections := []struct {
		title, body string
		rating      int
		linked      bool
	}{
		{"Introduction", "Why relationship cards exist.", 4, true},
		{"Getting started", "Open a post and pick its sections.", 5, true},
		{"Reordering", "Grab a card with space and move it.", 3, true},
		{"Appendix", "Not linked yet; connect it from the picker.", 2, false},
	}
	authors := []struct {
		name, email string
		linked      bool
	}{
		{"Ada Lovelace", "ada@example.com", true},
		{"Grace Hopper", "grace@example.com", false},
	}

	postID := DemoPostID()
	var sectionIDs, authorIDs []string
	for i, s := range sections {
		id := seedID("section", s.title)
		rec := repository.Record{ID: id, ListKey: "Section", Sort: i, Data: map[string]any{
			"title": s.title, "body": s.body, "rating": s.rating,
		}}
		if err := records.Upsert(ctx, rec); err != nil {
			return err
		}
		if s.linked {
			sectionIDs = append(sectionIDs, id)
		}
	}
	for i, a := range authors {
		id := seedID("author", a.name)
		rec := repository.Record{ID: id, ListKey: "Author", Sort: i, Data: map[string]any{
			"name": a.name, "email": a.email,
		}}
		if err := records.Upsert(ctx, rec); err != nil {
			return err
		}
		if a.linked {
			authorIDs = append(authorIDs, id)
		}
	}
	post := repository.Record{ID: postID, ListKey: "Post", Data: map[string]any{"title": "Welcome to relcards"}}
	if err := records.Upsert(ctx, post); err != nil {
		return err
	}

	links := repository.NewRelationshipRepo(db)
	if err := links.Replace(ctx, postID, "sections", sectionIDs); err != nil {
		return err
	}
	return links.Replace(ctx, postID, "author", authorIDs)
}
