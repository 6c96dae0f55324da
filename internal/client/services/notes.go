package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/notes"
	"github.com/google/uuid"
)

// NoteCollection is the read side of the notes table needed by the content
// store, the reconciler and the publisher.
type NoteCollection interface {
	// Get returns a live note, or nil.
	Get(ctx context.Context, id string) (*models.Note, error)
	Exists(ctx context.Context, id string) (bool, error)
}

// NoteService creates and deletes notes together with their content.
type NoteService struct {
	repo    notes.Repository
	content *ContentService
	now     func() time.Time
}

func NewNoteService(repo notes.Repository, content *ContentService) *NoteService {
	return &NoteService{repo: repo, content: content, now: time.Now}
}

// Create adds a note with an empty body and returns its id.
func (s *NoteService) Create(ctx context.Context, title string) (string, error) {
	now := s.now()
	n := &models.Note{ID: uuid.NewString(), Title: title, DateCreated: now, DateModified: now}
	if err := s.repo.Upsert(ctx, n); err != nil {
		return "", fmt.Errorf("create note: %w", err)
	}
	if _, err := s.content.Add(ctx, models.ContentInput{NoteID: n.ID}); err != nil {
		return "", fmt.Errorf("create note body: %w", err)
	}
	return n.ID, nil
}

func (s *NoteService) Get(ctx context.Context, id string) (*models.Note, error) {
	return s.repo.Get(ctx, id)
}

func (s *NoteService) List(ctx context.Context) ([]*models.Note, error) {
	return s.repo.List(ctx)
}

// Delete tombstones the note and its content.
func (s *NoteService) Delete(ctx context.Context, id string) error {
	if err := s.repo.SoftDelete(ctx, id, s.now()); err != nil {
		return err
	}
	return s.content.RemoveByNoteID(ctx, id)
}
