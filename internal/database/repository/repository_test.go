package repository_test

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jask/relcards/internal/database"
	"github.com/jask/relcards/internal/database/repository"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	require.NoError(t, database.RunMigrations(path, ""))
	db, err := database.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func section(id, title string, sort int) repository.Record {
	return repository.Record{ID: id, ListKey: "Section", Sort: sort, Data: map[string]any{"title": title}}
}

func TestRecordRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewRecordRepo(openDB(t))

	rec := section("s1", "Intro", 3)
	rec.Data["rating"] = 4
	require.NoError(t, repo.Insert(ctx, rec))

	got, err := repo.Get(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "Section", got.ListKey)
	require.Equal(t, 3, got.Sort)
	require.Equal(t, "Intro", got.Data["title"])
	require.EqualValues(t, 4, got.Data["rating"])
	require.False(t, got.CreatedAt.IsZero())

	missing, err := repo.Get(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestListByIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewRecordRepo(openDB(t))

	require.NoError(t, repo.Insert(ctx, section("a", "A", 2)))
	require.NoError(t, repo.Insert(ctx, section("b", "B", 1)))
	require.NoError(t, repo.Insert(ctx, repository.Record{ID: "x", ListKey: "Author", Data: map[string]any{"name": "X"}}))

	recs, err := repo.ListByIDs(ctx, "Section", []string{"a", "b", "x", "gone"})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "b", recs[0].ID)
	require.Equal(t, "a", recs[1].ID)

	none, err := repo.ListByIDs(ctx, "Section", nil)
	require.NoError(t, err)
	require.Empty(t, none)
}

func TestUpdateManyIsAllOrNothing(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewRecordRepo(openDB(t))

	require.NoError(t, repo.Insert(ctx, section("a", "A", 0)))
	require.NoError(t, repo.Insert(ctx, section("b", "B", 1)))

	err := repo.UpdateMany(ctx, "Section", []repository.Patch{
		{ID: "a", Data: map[string]any{"sort": 1}},
		{ID: "ghost", Data: map[string]any{"sort": 0}},
	})
	require.True(t, errors.Is(err, repository.ErrNotFound))

	a, err := repo.Get(ctx, "a")
	require.NoError(t, err)
	require.Equal(t, 0, a.Sort, "the failed batch must not leave partial writes")

	require.NoError(t, repo.UpdateMany(ctx, "Section", []repository.Patch{
		{ID: "a", Data: map[string]any{"sort": 1, "title": "A2"}},
		{ID: "b", Data: map[string]any{"sort": float64(0)}},
	}))
	recs, err := repo.List(ctx, "Section")
	require.NoError(t, err)
	require.Equal(t, "b", recs[0].ID)
	require.Equal(t, "a", recs[1].ID)
	require.Equal(t, "A2", recs[1].Data["title"])
	_, hasSort := recs[1].Data["sort"]
	require.False(t, hasSort)
}

func TestUpdateManyRejectsFractionalSort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewRecordRepo(openDB(t))
	require.NoError(t, repo.Insert(ctx, section("a", "A", 0)))

	err := repo.UpdateMany(ctx, "Section", []repository.Patch{{ID: "a", Data: map[string]any{"sort": 1.5}}})
	require.Error(t, err)
}

func TestNextSort(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := repository.NewRecordRepo(openDB(t))

	n, err := repo.NextSort(ctx, "Section")
	require.NoError(t, err)
	require.Equal(t, 0, n)

	require.NoError(t, repo.Insert(ctx, section("a", "A", 7)))
	n, err = repo.NextSort(ctx, "Section")
	require.NoError(t, err)
	require.Equal(t, 8, n)
}

func TestRelationshipReplace(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	records := repository.NewRecordRepo(db)
	links := repository.NewRelationshipRepo(db)

	require.NoError(t, records.Insert(ctx, repository.Record{ID: "p", ListKey: "Post"}))
	require.NoError(t, links.Replace(ctx, "p", "sections", []string{"c", "a", "b"}))

	ids, err := links.IDs(ctx, "p", "sections")
	require.NoError(t, err)
	require.Equal(t, []string{"c", "a", "b"}, ids)

	require.NoError(t, links.Replace(ctx, "p", "sections", []string{"a"}))
	ids, err = links.IDs(ctx, "p", "sections")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)

	empty, err := links.IDs(ctx, "p", "author")
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDeleteLeavesLinks(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	records := repository.NewRecordRepo(db)
	links := repository.NewRelationshipRepo(db)

	require.NoError(t, records.Insert(ctx, repository.Record{ID: "p", ListKey: "Post"}))
	require.NoError(t, records.Insert(ctx, section("a", "A", 0)))
	require.NoError(t, links.Replace(ctx, "p", "sections", []string{"a"}))
	require.NoError(t, records.Delete(ctx, "a"))

	ids, err := links.IDs(ctx, "p", "sections")
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := openDB(t)
	repo := repository.NewRecordRepo(db)

	errStop := errors.New("stop")
	err := repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO records(id, list_key, data, sort) VALUES('t1', 'Section', '{}', 0)`); err != nil {
			return err
		}
		return errStop
	})
	require.ErrorIs(t, err, errStop)
	got, err := repo.Get(ctx, "t1")
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, repository.WithTx(ctx, db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO records(id, list_key, data, sort) VALUES('t2', 'Section', '{}', 0)`)
		return err
	}))
	got, err = repo.Get(ctx, "t2")
	require.NoError(t, err)
	require.NotNil(t, got)
}
