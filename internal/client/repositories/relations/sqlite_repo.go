package relations

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db  dbx.DBTX
	now func() time.Time
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

func (r *SQLiteRepository) Add(ctx context.Context, from, to models.ItemRef) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO relations (from_id, from_type, to_id, to_type, date_modified, deleted)
		VALUES (?, ?, ?, ?, ?, 0)
		ON CONFLICT(from_id, from_type, to_id, to_type) DO UPDATE SET deleted = 0, date_modified = excluded.date_modified
		WHERE relations.deleted = 1`,
		from.ID, string(from.Type), to.ID, string(to.Type), dbx.Millis(r.now()))
	if err != nil {
		return fmt.Errorf("failed to add relation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Unlink(ctx context.Context, from, to models.ItemRef) error {
	_, err := r.db.ExecContext(ctx, `UPDATE relations SET deleted = 1, date_modified = ?
		WHERE from_id = ? AND from_type = ? AND to_id = ? AND to_type = ? AND deleted = 0`,
		dbx.Millis(r.now()), from.ID, string(from.Type), to.ID, string(to.Type))
	if err != nil {
		return fmt.Errorf("failed to unlink relation: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) From(ctx context.Context, from models.ItemRef, toType models.ItemType) ([]models.Relation, error) {
	return r.query(ctx, `SELECT from_id, from_type, to_id, to_type, date_modified FROM relations
		WHERE from_id = ? AND from_type = ? AND to_type = ? AND deleted = 0 ORDER BY to_id`,
		from.ID, string(from.Type), string(toType))
}

func (r *SQLiteRepository) To(ctx context.Context, to models.ItemRef, fromType models.ItemType) ([]models.Relation, error) {
	return r.query(ctx, `SELECT from_id, from_type, to_id, to_type, date_modified FROM relations
		WHERE to_id = ? AND to_type = ? AND from_type = ? AND deleted = 0 ORDER BY from_id`,
		to.ID, string(to.Type), string(fromType))
}

func (r *SQLiteRepository) query(ctx context.Context, query string, args ...any) ([]models.Relation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select relations: %w", err)
	}
	defer rows.Close()

	var result []models.Relation
	for rows.Next() {
		var (
			rel              models.Relation
			fromType, toType string
			modified         int64
		)
		if err := rows.Scan(&rel.FromID, &fromType, &rel.ToID, &toType, &modified); err != nil {
			return nil, fmt.Errorf("failed to scan relation: %w", err)
		}
		rel.FromType = models.ItemType(fromType)
		rel.ToType = models.ItemType(toType)
		rel.DateModified = dbx.FromMillis(modified)
		result = append(result, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
