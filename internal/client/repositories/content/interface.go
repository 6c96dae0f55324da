package content

import (
	"context"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository describes storage operations for Content records.
type Repository interface {
	// Upsert inserts a record or replaces every column of an existing one.
	Upsert(ctx context.Context, c *models.Content) error

	// Get returns a live record by id, or nil when missing or tombstoned.
	Get(ctx context.Context, id string) (*models.Content, error)

	// GetRaw returns a record by id including tombstones, or nil.
	GetRaw(ctx context.Context, id string) (*models.Content, error)

	// FindByNoteID returns the live record owned by noteID, or nil.
	FindByNoteID(ctx context.Context, noteID string) (*models.Content, error)

	// SoftDelete tombstones live records by id and marks them pending.
	// Returns the number of rows affected.
	SoftDelete(ctx context.Context, at time.Time, ids ...string) (int64, error)

	// SoftDeleteByNoteID tombstones live records owned by the given notes.
	SoftDeleteByNoteID(ctx context.Context, at time.Time, noteIDs ...string) (int64, error)

	// GetAllPending returns records awaiting push, tombstones included and
	// local-only records excluded.
	GetAllPending(ctx context.Context) ([]*models.Content, error)

	// GetConflicted returns live records with an unresolved conflict.
	GetConflicted(ctx context.Context) ([]*models.Content, error)

	// MarkSynced clears the pending flag if the row was not modified after
	// dateModified.
	MarkSynced(ctx context.Context, id string, dateModified time.Time) error
}
