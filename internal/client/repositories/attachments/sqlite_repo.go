package attachments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

const selectColumns = `id, hash, filename, mime_type, size, uploaded, date_created, date_modified, deleted`

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Create(ctx context.Context, a *models.Attachment) error {
	query := `INSERT INTO attachments (id, hash, filename, mime_type, size, uploaded, date_created, date_modified, deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0)
		ON CONFLICT(hash) DO UPDATE SET deleted = 0, date_modified = excluded.date_modified`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Hash, a.Filename, a.MimeType, a.Size, dbx.BoolToInt(a.Uploaded),
		dbx.Millis(a.DateCreated), dbx.Millis(a.DateModified))
	if err != nil {
		return fmt.Errorf("failed to create attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByHash(ctx context.Context, hash string) (*models.Attachment, error) {
	return r.queryOne(ctx, `SELECT `+selectColumns+` FROM attachments WHERE hash = ? AND deleted = 0`, hash)
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	return r.queryOne(ctx, `SELECT `+selectColumns+` FROM attachments WHERE id = ? AND deleted = 0`, id)
}

func (r *SQLiteRepository) GetAllPendingUpload(ctx context.Context) ([]*models.Attachment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM attachments WHERE uploaded = 0 AND deleted = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to select pending attachments: %w", err)
	}
	defer rows.Close()

	var result []*models.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) MarkUploaded(ctx context.Context, hash string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE attachments SET uploaded = 1 WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to mark attachment uploaded: %w", err)
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

func (r *SQLiteRepository) DeleteByHash(ctx context.Context, hash string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attachments SET deleted = 1 WHERE hash = ?`, hash)
	if err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Attachment, error) {
	a, err := scanAttachment(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return a, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAttachment(s scanner) (*models.Attachment, error) {
	var (
		a                      models.Attachment
		uploaded, deleted      int
		dateCreated, dateModif int64
	)
	if err := s.Scan(&a.ID, &a.Hash, &a.Filename, &a.MimeType, &a.Size, &uploaded, &dateCreated, &dateModif, &deleted); err != nil {
		return nil, err
	}
	a.Uploaded = uploaded == 1
	a.Deleted = deleted == 1
	a.DateCreated = dbx.FromMillis(dateCreated)
	a.DateModified = dbx.FromMillis(dateModif)
	return &a, nil
}
