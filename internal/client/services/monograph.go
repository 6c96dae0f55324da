package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"sync"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// PublishOptions tune a monograph.
type PublishOptions struct {
	// Password encrypts the published content when set.
	Password string
	// SelfDestruct deletes the monograph after its first view.
	SelfDestruct bool
	// Progress reports media downloads.
	Progress DownloadProgress
}

type monographResponse struct {
	ID string `json:"id"`
}

// MonographService publishes notes as monographs and keeps a local index
// of the published note ids.
type MonographService struct {
	api     client.API
	auth    AuthProvider
	notes   NoteCollection
	content *ContentService
	meta    metadata.Repository
	log     logging.Logger

	mu    sync.Mutex
	index []string
}

func NewMonographService(api client.API, auth AuthProvider, notes NoteCollection, content *ContentService, meta metadata.Repository, log logging.Logger) *MonographService {
	return &MonographService{api: api, auth: auth, notes: notes, content: content, meta: meta, log: log}
}

// Load restores the persisted index.
func (s *MonographService) Load(ctx context.Context) error {
	var ids []string
	if _, err := metadata.GetJSON(ctx, s.meta, metadata.KeyMonographs, &ids); err != nil {
		return err
	}
	s.mu.Lock()
	s.index = ids
	s.mu.Unlock()
	return nil
}

// Publish uploads the note as a monograph and returns the monograph id.
func (s *MonographService) Publish(ctx context.Context, noteID string, opts PublishOptions) (string, error) {
	if len(s.All()) == 0 {
		if err := s.Refresh(ctx); err != nil {
			s.log.Warn(ctx, "monograph index refresh failed", "error", err)
		}
	}

	user, err := s.auth.User(ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", common.ErrAuthenticationRequired
	}
	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		if errors.Is(err, common.ErrAuthenticationRequired) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", common.ErrAuthenticationRequired, err)
	}
	if !user.IsEmailConfirmed {
		return "", common.ErrEmailNotConfirmed
	}

	note, err := s.notes.Get(ctx, noteID)
	if err != nil {
		return "", err
	}
	if note == nil {
		return "", fmt.Errorf("%w: %s", common.ErrNoteNotFound, noteID)
	}

	c, err := s.content.FindByNoteID(ctx, noteID)
	if err != nil {
		return "", err
	}
	if c != nil && c.Locked() {
		return "", common.ErrContentLocked
	}
	if c == nil || c.Data.IsEmpty() {
		return "", common.ErrEmptyNote
	}
	body, _ := c.Data.Plain()

	media, err := s.content.DownloadMedia(ctx, "monograph:"+noteID, models.ContentData{Type: c.Type, Data: body}, opts.Progress)
	if err != nil {
		return "", fmt.Errorf("download media: %w", err)
	}

	m := models.Monograph{
		ID:           noteID,
		Title:        note.Title,
		UserID:       user.ID,
		SelfDestruct: opts.SelfDestruct,
	}
	if opts.Password != "" {
		env, err := sealMonograph(media, opts.Password)
		if err != nil {
			return "", err
		}
		m.EncryptedContent = &env
	} else {
		m.Content = &media
	}
	if err := m.Validate(); err != nil {
		return "", err
	}

	var resp monographResponse
	if s.IsPublished(noteID) {
		err = s.api.Patch(ctx, "/monographs/"+url.PathEscape(noteID), m, token, &resp)
	} else {
		err = s.api.Post(ctx, "/monographs", m, token, &resp)
	}
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", noteID, err)
	}

	if err := s.mutate(ctx, func(ids []string) []string {
		if slices.Contains(ids, noteID) {
			return ids
		}
		return append(ids, noteID)
	}); err != nil {
		return "", err
	}

	if resp.ID == "" {
		resp.ID = noteID
	}
	s.log.Info(ctx, "note published", "note", noteID, "monograph", resp.ID, "encrypted", m.Locked())
	return resp.ID, nil
}

// sealMonograph encrypts {type,data} with a key derived from password. The
// salt travels in the envelope so readers can derive the same key.
func sealMonograph(cd models.ContentData, password string) (models.CipherEnvelope, error) {
	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return models.CipherEnvelope{}, err
	}
	key := cryptox.DeriveMasterKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	payload, err := json.Marshal(cd)
	if err != nil {
		return models.CipherEnvelope{}, err
	}
	env, err := models.Seal(key, payload)
	if err != nil {
		return models.CipherEnvelope{}, fmt.Errorf("encrypt monograph: %w", err)
	}
	env.Salt = base64.StdEncoding.EncodeToString(salt)
	return env, nil
}

// OpenMonograph decrypts a password protected monograph.
func OpenMonograph(m *models.Monograph, password string) (models.ContentData, error) {
	if m.EncryptedContent == nil {
		if m.Content == nil {
			return models.ContentData{}, models.ErrMonographShape
		}
		return *m.Content, nil
	}
	salt, err := m.EncryptedContent.SaltBytes()
	if err != nil {
		return models.ContentData{}, fmt.Errorf("%w: bad salt", common.ErrMalformedCipher)
	}
	key := cryptox.DeriveMasterKey([]byte(password), salt)
	defer common.WipeByteArray(key)

	plain, err := m.EncryptedContent.Open(key)
	if err != nil {
		return models.ContentData{}, err
	}
	var cd models.ContentData
	if err := json.Unmarshal(plain, &cd); err != nil {
		return models.ContentData{}, err
	}
	return cd, nil
}

// Unpublish deletes the monograph of noteID.
func (s *MonographService) Unpublish(ctx context.Context, noteID string) error {
	if !s.IsPublished(noteID) {
		return common.ErrNotPublished
	}
	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return err
	}

	err = s.api.Delete(ctx, "/monographs/"+url.PathEscape(noteID), token)
	if err != nil && !errors.Is(err, client.ErrNotFound) {
		return fmt.Errorf("unpublish %s: %w", noteID, err)
	}

	return s.mutate(ctx, func(ids []string) []string {
		return slices.DeleteFunc(ids, func(id string) bool { return id == noteID })
	})
}

// IsPublished reports whether noteID is in the local index.
func (s *MonographService) IsPublished(noteID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Contains(s.index, noteID)
}

// All returns a copy of the index.
func (s *MonographService) All() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.index)
}

// Refresh replaces the index with the server's list.
func (s *MonographService) Refresh(ctx context.Context) error {
	token, err := s.auth.AccessToken(ctx)
	if err != nil {
		return err
	}
	var ids []string
	if err := s.api.Get(ctx, "/monographs", token, &ids); err != nil {
		return fmt.Errorf("list monographs: %w", err)
	}
	return s.mutate(ctx, func([]string) []string { return ids })
}

func (s *MonographService) mutate(ctx context.Context, fn func([]string) []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := fn(slices.Clone(s.index))
	if next == nil {
		next = []string{}
	}
	s.index = next
	return metadata.SetJSON(ctx, s.meta, metadata.KeyMonographs, next)
}
