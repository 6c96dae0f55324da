package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
)

type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Append(ctx context.Context, e *models.SessionEntry) error {
	if e.Data.IsZero() {
		return fmt.Errorf("failed to append session %s: data is not set", e.SessionID)
	}
	data, err := json.Marshal(e.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}

	res, err := r.db.ExecContext(ctx, `INSERT INTO session_content (session_id, note_id, type, data, locked, date_created)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.SessionID, e.NoteID, string(e.Type), string(data), dbx.BoolToInt(e.Locked()), dbx.Millis(e.DateCreated))
	if err != nil {
		return fmt.Errorf("failed to append session content: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		e.Seq = id
	}
	return nil
}

func (r *SQLiteRepository) Latest(ctx context.Context, sessionID, noteID string) (*models.SessionEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT seq, session_id, note_id, type, data, date_created
		FROM session_content WHERE session_id = ? AND note_id = ? ORDER BY seq DESC LIMIT 1`, sessionID, noteID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session content: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) ListByNote(ctx context.Context, noteID string) ([]*models.SessionEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT seq, session_id, note_id, type, data, date_created
		FROM session_content WHERE note_id = ? ORDER BY seq DESC`, noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list session content: %w", err)
	}
	defer rows.Close()

	var result []*models.SessionEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session content: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.SessionEntry, error) {
	var (
		e       models.SessionEntry
		typ     string
		data    string
		created int64
	)
	if err := s.Scan(&e.Seq, &e.SessionID, &e.NoteID, &typ, &data, &created); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return nil, err
	}
	e.Type = models.ContentType(typ)
	e.DateCreated = dbx.FromMillis(created)
	return &e, nil
}
