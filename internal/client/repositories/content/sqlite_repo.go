package content

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

const selectColumns = `id, note_id, type, data, local_only, conflicted, date_resolved,
	date_created, date_edited, date_modified, deleted, pending`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Upsert writes c by id. On conflict every mutable column is replaced;
// date_created is kept from the first insert.
func (r *SQLiteRepository) Upsert(ctx context.Context, c *models.Content) error {
	if c.Data.IsZero() {
		return fmt.Errorf("failed to upsert content %s: data is not set", c.ID)
	}
	c.Normalize()

	data, err := json.Marshal(c.Data)
	if err != nil {
		return fmt.Errorf("failed to encode content data: %w", err)
	}

	var conflicted sql.NullString
	if c.Conflicted != nil {
		b, err := json.Marshal(c.Conflicted)
		if err != nil {
			return fmt.Errorf("failed to encode conflict: %w", err)
		}
		conflicted = sql.NullString{String: string(b), Valid: true}
	}

	var resolved sql.NullInt64
	if c.DateResolved != nil {
		resolved = sql.NullInt64{Int64: dbx.Millis(*c.DateResolved), Valid: true}
	}

	query := `INSERT INTO content (id, note_id, type, data, locked, local_only, conflicted, date_resolved,
			date_created, date_edited, date_modified, deleted, pending)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			note_id = excluded.note_id,
			type = excluded.type,
			data = excluded.data,
			locked = excluded.locked,
			local_only = excluded.local_only,
			conflicted = excluded.conflicted,
			date_resolved = excluded.date_resolved,
			date_edited = excluded.date_edited,
			date_modified = excluded.date_modified,
			deleted = excluded.deleted,
			pending = excluded.pending
	`
	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.NoteID, string(c.Type), string(data), dbx.BoolToInt(c.Locked()), dbx.BoolToInt(c.LocalOnly),
		conflicted, resolved,
		dbx.Millis(c.DateCreated), dbx.Millis(c.DateEdited), dbx.Millis(c.DateModified),
		dbx.BoolToInt(c.Deleted), dbx.BoolToInt(c.Pending))
	if err != nil {
		return fmt.Errorf("failed to upsert content: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Get(ctx context.Context, id string) (*models.Content, error) {
	return r.queryOne(ctx, `SELECT `+selectColumns+` FROM content WHERE id = ? AND deleted = 0`, id)
}

func (r *SQLiteRepository) GetRaw(ctx context.Context, id string) (*models.Content, error) {
	return r.queryOne(ctx, `SELECT `+selectColumns+` FROM content WHERE id = ?`, id)
}

func (r *SQLiteRepository) FindByNoteID(ctx context.Context, noteID string) (*models.Content, error) {
	return r.queryOne(ctx, `SELECT `+selectColumns+` FROM content
		WHERE note_id = ? AND deleted = 0 ORDER BY date_modified DESC LIMIT 1`, noteID)
}

func (r *SQLiteRepository) SoftDelete(ctx context.Context, at time.Time, ids ...string) (int64, error) {
	return r.softDelete(ctx, "id", at, ids)
}

func (r *SQLiteRepository) SoftDeleteByNoteID(ctx context.Context, at time.Time, noteIDs ...string) (int64, error) {
	return r.softDelete(ctx, "note_id", at, noteIDs)
}

func (r *SQLiteRepository) softDelete(ctx context.Context, column string, at time.Time, keys []string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(keys)+1)
	args = append(args, dbx.Millis(at))
	for _, k := range keys {
		args = append(args, k)
	}

	query := fmt.Sprintf(`UPDATE content SET deleted = 1, pending = 1,
		date_modified = MAX(date_modified, ?) WHERE deleted = 0 AND %s IN (%s)`, column, placeholders(len(keys)))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete content: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra, nil
}

func (r *SQLiteRepository) GetAllPending(ctx context.Context) ([]*models.Content, error) {
	return r.queryMany(ctx, `SELECT `+selectColumns+` FROM content
		WHERE pending = 1 AND local_only = 0 ORDER BY date_modified`)
}

func (r *SQLiteRepository) GetConflicted(ctx context.Context) ([]*models.Content, error) {
	return r.queryMany(ctx, `SELECT `+selectColumns+` FROM content
		WHERE conflicted IS NOT NULL AND deleted = 0 ORDER BY date_modified`)
}

func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string, dateModified time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE content SET pending = 0 WHERE id = ? AND date_modified <= ?`,
		id, dbx.Millis(dateModified))
	if err != nil {
		return fmt.Errorf("failed to mark content %s synced: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) queryOne(ctx context.Context, query string, args ...any) (*models.Content, error) {
	row := r.db.QueryRowContext(ctx, query, args...)
	c, err := scanContent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query row scan failed: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) queryMany(ctx context.Context, query string, args ...any) ([]*models.Content, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select content: %w", err)
	}
	defer rows.Close()

	var result []*models.Content
	for rows.Next() {
		c, err := scanContent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContent(s scanner) (*models.Content, error) {
	var (
		c                                     models.Content
		typ, data                             string
		localOnly, deleted, pending           int
		conflicted                            sql.NullString
		resolved                              sql.NullInt64
		dateCreated, dateEdited, dateModified int64
	)
	if err := s.Scan(&c.ID, &c.NoteID, &typ, &data, &localOnly, &conflicted, &resolved,
		&dateCreated, &dateEdited, &dateModified, &deleted, &pending); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(data), &c.Data); err != nil {
		return nil, fmt.Errorf("content %s: %w", c.ID, err)
	}
	if conflicted.Valid {
		c.Conflicted = &models.ConflictedContent{}
		if err := json.Unmarshal([]byte(conflicted.String), c.Conflicted); err != nil {
			return nil, fmt.Errorf("content %s conflict: %w", c.ID, err)
		}
	}
	if resolved.Valid {
		t := dbx.FromMillis(resolved.Int64)
		c.DateResolved = &t
	}

	c.Type = models.ContentType(typ)
	c.LocalOnly = localOnly == 1
	c.Deleted = deleted == 1
	c.Pending = pending == 1
	c.DateCreated = dbx.FromMillis(dateCreated)
	c.DateEdited = dbx.FromMillis(dateEdited)
	c.DateModified = dbx.FromMillis(dateModified)
	return &c, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
