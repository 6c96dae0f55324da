// Package history stores append-only session snapshots of note bodies.
package history

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository is an append-only log of session snapshots. Rows are never
// updated; several snapshots for the same (session, note) are separate rows.
type Repository interface {
	// Append stores e and sets e.Seq.
	Append(ctx context.Context, e *models.SessionEntry) error

	// Latest returns the newest snapshot for (sessionID, noteID), or nil.
	Latest(ctx context.Context, sessionID, noteID string) (*models.SessionEntry, error)

	// ListByNote returns every snapshot of a note, newest first.
	ListByNote(ctx context.Context, noteID string) ([]*models.SessionEntry, error)
}
