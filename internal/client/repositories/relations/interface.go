// Package relations persists typed, directed edges between items.
package relations

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository stores relations keyed by (from, to). Add and Unlink are
// idempotent; unlinking tombstones the edge and adding it again revives it.
type Repository interface {
	Add(ctx context.Context, from, to models.ItemRef) error
	Unlink(ctx context.Context, from, to models.ItemRef) error

	// From returns live edges leaving from whose target has type toType.
	From(ctx context.Context, from models.ItemRef, toType models.ItemType) ([]models.Relation, error)

	// To returns live edges arriving at to whose source has type fromType.
	To(ctx context.Context, to models.ItemRef, fromType models.ItemType) ([]models.Relation, error)
}
