package repository

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/goccy/go-json"
)

const sortKey = "sort"

// RecordRepo handles records of every list.
type RecordRepo struct {
	db *sql.DB
}

func NewRecordRepo(db *sql.DB) *RecordRepo { return &RecordRepo{db: db} }

const recordColumns = "id, list_key, data, sort, created_at, updated_at"

func (r *RecordRepo) Insert(ctx context.Context, rec Record) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO records(id, list_key, data, sort, created_at, updated_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	`, rec.ID, rec.ListKey, data, rec.Sort)
	return err
}

// Upsert inserts rec or overwrites its data and sort.
func (r *RecordRepo) Upsert(ctx context.Context, rec Record) error {
	data, err := encodeData(rec.Data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `
	INSERT INTO records(id, list_key, data, sort, created_at, updated_at)
	VALUES(?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
	ON CONFLICT(id) DO UPDATE SET
	 list_key=excluded.list_key,
	 data=excluded.data,
	 sort=excluded.sort,
	 updated_at=CURRENT_TIMESTAMP;
	`, rec.ID, rec.ListKey, data, rec.Sort)
	return err
}

// Get returns the record, or nil when it does not exist.
func (r *RecordRepo) Get(ctx context.Context, id string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// ListByIDs returns the records of listKey among ids. Missing ids are simply absent.
func (r *RecordRepo) ListByIDs(ctx context.Context, listKey string, ids []string) ([]Record, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, listKey)
	for _, id := range ids {
		args = append(args, id)
	}
	query := `SELECT ` + recordColumns + ` FROM records WHERE list_key = ? AND id IN (` +
		placeholders(len(ids)) + `) ORDER BY sort, id`
	return r.query(ctx, query, args...)
}

// List returns every record of listKey ordered by sort.
func (r *RecordRepo) List(ctx context.Context, listKey string) ([]Record, error) {
	return r.query(ctx, `SELECT `+recordColumns+` FROM records WHERE list_key = ? ORDER BY sort, id`, listKey)
}

// UpdateMany applies patches to records of listKey in one transaction. A patch for a record that
// does not exist aborts the whole batch with ErrNotFound.
func (r *RecordRepo) UpdateMany(ctx context.Context, listKey string, patches []Patch) error {
	if len(patches) == 0 {
		return nil
	}
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return applyPatches(ctx, tx, listKey, patches)
	})
}

func applyPatches(ctx context.Context, tx *sql.Tx, listKey string, patches []Patch) error {
	for _, p := range patches {
		var raw string
		var sort int
		err := tx.QueryRowContext(ctx, `SELECT data, sort FROM records WHERE id = ? AND list_key = ?`, p.ID, listKey).Scan(&raw, &sort)
		if err == sql.ErrNoRows {
			return fmt.Errorf("update %s %s: %w", listKey, p.ID, ErrNotFound)
		}
		if err != nil {
			return err
		}
		data, err := decodeData(raw)
		if err != nil {
			return err
		}
		for k, v := range p.Data {
			if k == sortKey {
				n, ok := toInt(v)
				if !ok {
					return fmt.Errorf("update %s %s: sort must be an integer, got %T", listKey, p.ID, v)
				}
				sort = n
				continue
			}
			data[k] = v
		}
		encoded, err := encodeData(data)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `UPDATE records SET data = ?, sort = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, encoded, sort, p.ID); err != nil {
			return err
		}
	}
	return nil
}

// NextSort returns one past the largest sort value in listKey.
func (r *RecordRepo) NextSort(ctx context.Context, listKey string) (int, error) {
	var top sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(sort) FROM records WHERE list_key = ?`, listKey).Scan(&top); err != nil {
		return 0, err
	}
	if !top.Valid {
		return 0, nil
	}
	return int(top.Int64) + 1, nil
}

// Delete removes a record. Links pointing at it are left in place.
func (r *RecordRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	return err
}

func (r *RecordRepo) query(ctx context.Context, query string, args ...interface{}) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (Record, error) {
	var rec Record
	var raw string
	if err := s.Scan(&rec.ID, &rec.ListKey, &raw, &rec.Sort, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return Record{}, err
	}
	data, err := decodeData(raw)
	if err != nil {
		return Record{}, fmt.Errorf("record %s: %w", rec.ID, err)
	}
	rec.Data = data
	return rec, nil
}

func encodeData(data map[string]any) (string, error) {
	if len(data) == 0 {
		return "{}", nil
	}
	clean := make(map[string]any, len(data))
	for k, v := range data {
		if k == "id" || k == sortKey {
			continue
		}
		clean[k] = v
	}
	b, err := json.Marshal(clean)
	if err != nil {
		return "", fmt.Errorf("encode record data: %w", err)
	}
	return string(b), nil
}

func decodeData(raw string) (map[string]any, error) {
	data := map[string]any{}
	if strings.TrimSpace(raw) == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("decode record data: %w", err)
	}
	return data, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	default:
		return 0, false
	}
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
