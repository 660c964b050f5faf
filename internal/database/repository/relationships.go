package repository

import (
	"context"
	"database/sql"
)

// RelationshipRepo stores which records an owner's relationship field points at.
type RelationshipRepo struct{ db *sql.DB }

func NewRelationshipRepo(db *sql.DB) *RelationshipRepo { return &RelationshipRepo{db: db} }

// IDs returns the related ids of ownerID's field in link order.
func (r *RelationshipRepo) IDs(ctx context.Context, ownerID, field string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
	SELECT related_id FROM relationships
	WHERE owner_id = ? AND field = ?
	ORDER BY position, related_id
	`, ownerID, field)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Replace makes ids the complete set of links for ownerID's field.
func (r *RelationshipRepo) Replace(ctx context.Context, ownerID, field string, ids []string) error {
	return WithTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM relationships WHERE owner_id = ? AND field = ?`, ownerID, field); err != nil {
			return err
		}
		for i, id := range ids {
			if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO relationships(owner_id, field, related_id, position)
			VALUES(?, ?, ?, ?)
			`, ownerID, field, id, i); err != nil {
				return err
			}
		}
		return nil
	})
}
