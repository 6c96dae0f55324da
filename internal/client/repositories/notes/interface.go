// Package notes persists the local notes collection that owns content records.
package notes

import (
	"context"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository describes storage operations for notes.
type Repository interface {
	// Upsert inserts or updates a note by id.
	Upsert(ctx context.Context, n *models.Note) error

	// Get returns a live note, or nil when missing or deleted.
	Get(ctx context.Context, id string) (*models.Note, error)

	// Exists reports whether a live note with id exists.
	Exists(ctx context.Context, id string) (bool, error)

	// List returns live notes, most recently modified first.
	List(ctx context.Context) ([]*models.Note, error)

	// SoftDelete tombstones a note.
	SoftDelete(ctx context.Context, id string, at time.Time) error
}
