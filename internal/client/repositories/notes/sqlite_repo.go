package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Upsert(ctx context.Context, n *models.Note) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO notes (id, title, date_created, date_modified, deleted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET title = excluded.title,
			date_modified = excluded.date_modified,
			deleted = excluded.deleted`,
		n.ID, n.Title, dbx.Millis(n.DateCreated), dbx.Millis(n.DateModified), dbx.BoolToInt(n.Deleted))
	if err != nil {
		return fmt.Errorf("failed to upsert note: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Note, error) {
	row := r.db.QueryRowContext(ctx, `SELECT id, title, date_created, date_modified, deleted
		FROM notes WHERE id = ? AND deleted = 0`, id)
	n, err := scanNote(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) Exists(ctx context.Context, id string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE id = ? AND deleted = 0`, id).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to check note: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Note, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, title, date_created, date_modified, deleted
		FROM notes WHERE deleted = 0 ORDER BY date_modified DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notes SET deleted = 1, date_modified = ? WHERE id = ? AND deleted = 0`,
		dbx.Millis(at), id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if ra != 1 {
		return fmt.Errorf("wrong rows affected count: %d", ra)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNote(s scanner) (*models.Note, error) {
	var (
		n                 models.Note
		created, modified int64
		deleted           int
	)
	if err := s.Scan(&n.ID, &n.Title, &created, &modified, &deleted); err != nil {
		return nil, err
	}
	n.DateCreated = dbx.FromMillis(created)
	n.DateModified = dbx.FromMillis(modified)
	n.Deleted = deleted == 1
	return &n, nil
}
