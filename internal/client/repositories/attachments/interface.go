package attachments

import (
	"context"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
)

// Repository describes CRUD and upload-state operations for attachments.
type Repository interface {
	// Create inserts metadata for a new hash. An existing row for the same
	// hash is revived (deleted=0) and keeps its id.
	Create(ctx context.Context, a *models.Attachment) error

	// GetByHash returns live metadata for hash, or nil.
	GetByHash(ctx context.Context, hash string) (*models.Attachment, error)

	// GetByID returns live metadata by id, or nil.
	GetByID(ctx context.Context, id string) (*models.Attachment, error)

	// GetAllPendingUpload returns live attachments not yet uploaded.
	GetAllPendingUpload(ctx context.Context) ([]*models.Attachment, error)

	// MarkUploaded flags the blob for hash as present remotely.
	MarkUploaded(ctx context.Context, hash string) error

	// DeleteByHash soft-deletes the attachment.
	DeleteByHash(ctx context.Context, hash string) error
}
