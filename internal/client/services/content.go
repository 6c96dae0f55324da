package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/content"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/history"
	"github.com/dmitrijs2005/notekeeper/internal/client/richtext"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/google/uuid"
)

// ItemMergedPublisher receives every record written by the merge path.
type ItemMergedPublisher interface {
	PublishItemMerged(ctx context.Context, item models.Content) error
}

// MergePolicy decides between a pending local record and a remote one.
type MergePolicy struct {
	// Strategy is config.MergeLWW or config.MergeManual.
	Strategy string
	// TieBreak applies under LWW when both sides carry the same edit time.
	TieBreak string
}

// ContentDeps are the collaborators of ContentService.
type ContentDeps struct {
	Repo        content.Repository
	History     history.Repository
	Notes       NoteCollection
	Attachments AttachmentStore
	Reconciler  *RelationReconciler
	Sessions    *SessionManager
	Events      ItemMergedPublisher
	Policy      MergePolicy
	Log         logging.Logger
}

// ContentService is the content record store. Calls for the same note are
// serialised; calls for different notes run concurrently.
type ContentService struct {
	repo        content.Repository
	history     history.Repository
	notes       NoteCollection
	attachments AttachmentStore
	reconciler  *RelationReconciler
	sessions    *SessionManager
	events      ItemMergedPublisher
	policy      MergePolicy
	log         logging.Logger
	now         func() time.Time
	locks       *keyedMutex
}

func NewContentService(d ContentDeps) *ContentService {
	return &ContentService{
		repo:        d.Repo,
		history:     d.History,
		notes:       d.Notes,
		attachments: d.Attachments,
		reconciler:  d.Reconciler,
		sessions:    d.Sessions,
		events:      d.Events,
		policy:      d.Policy,
		log:         d.Log,
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
}

// Add creates or partially updates a content record and returns its id.
// Remote content is rejected with common.ErrInvalidOperation; it must go
// through Merge. When neither in.ID nor in.NoteID resolves, Add returns an
// empty id and no error.
func (s *ContentService) Add(ctx context.Context, in models.ContentInput) (string, error) {
	if in.Remote {
		return "", fmt.Errorf("%w: remote content must be merged", common.ErrInvalidOperation)
	}

	data, err := decodeInputData(in)
	if err != nil {
		return "", err
	}

	noteID := in.NoteID
	if noteID == "" && in.ID != "" {
		c, err := s.repo.Get(ctx, in.ID)
		if err != nil {
			return "", err
		}
		if c != nil {
			noteID = c.NoteID
		}
	}
	if noteID == "" {
		s.log.Debug(ctx, "content not saved: no id or note id resolves", "id", in.ID)
		return "", nil
	}

	unlock := s.locks.Lock(noteID)
	defer unlock()

	existing, err := s.resolve(ctx, in.ID, noteID)
	if err != nil {
		return "", err
	}

	var extracted *richtext.Result
	if data != nil {
		if body, ok := data.Plain(); ok {
			extracted, err = richtext.Extract(ctx, body, s.saveMedia)
			if err != nil {
				return "", fmt.Errorf("process content: %w", err)
			}
			if extracted.Skipped > 0 {
				s.log.Warn(ctx, "inline images with undecodable data left in place", "note", noteID, "count", extracted.Skipped)
			}
			d := models.PlainData(extracted.HTML)
			data = &d
		}
	}

	var c *models.Content
	if existing != nil {
		c, err = s.update(ctx, existing, in, data)
	} else {
		c, err = s.create(ctx, in, noteID, data)
	}
	if err != nil {
		return "", err
	}

	if extracted != nil {
		if err := s.reconciler.Reconcile(ctx, c.NoteID, extracted.Hashes, extracted.InternalLinks); err != nil {
			return c.ID, err
		}
	}
	return c.ID, nil
}

func decodeInputData(in models.ContentInput) (*models.Data, error) {
	if in.Data != nil {
		if in.Data.IsZero() {
			return nil, nil
		}
		d := *in.Data
		return &d, nil
	}
	if len(in.RawData) == 0 {
		return nil, nil
	}
	d, err := models.DecodeLooseData(in.RawData)
	if err != nil {
		return nil, err
	}
	if d.IsZero() {
		return nil, nil
	}
	return &d, nil
}

// resolve finds the live record to update: by id first, then the live
// record of the note so a note never ends up with two.
func (s *ContentService) resolve(ctx context.Context, id, noteID string) (*models.Content, error) {
	if id != "" {
		c, err := s.repo.Get(ctx, id)
		if err != nil || c != nil {
			return c, err
		}
	}
	return s.repo.FindByNoteID(ctx, noteID)
}

func (s *ContentService) update(ctx context.Context, existing *models.Content, in models.ContentInput, data *models.Data) (*models.Content, error) {
	c := *existing
	now := s.now()
	sessionID := in.SessionID

	if data != nil {
		if isEmptyOverwrite(existing, *data) {
			prev := sessionID
			if prev == "" {
				if sid, ok := s.sessions.Get(c.NoteID); ok {
					prev = sid
				} else {
					prev = s.sessions.NewID()
				}
			}
			if err := s.snapshot(ctx, prev, existing); err != nil {
				return nil, err
			}
			sessionID = s.sessions.NewSession(c.NoteID)
			s.log.Info(ctx, "blank or invalid save over non-empty body, previous body kept in history",
				"note", c.NoteID, "previousSession", prev, "session", sessionID)
		}
		c.Data = *data
		c.DateEdited = timeOr(in.DateEdited, now)
	}
	if in.Type != "" {
		c.Type = in.Type
	}
	if in.LocalOnly != nil {
		c.LocalOnly = *in.LocalOnly
	}
	if in.Conflicted != nil {
		c.Conflicted = in.Conflicted
	}
	if in.DateResolved != nil {
		c.DateResolved = in.DateResolved
	}
	c.DateModified = timeOr(in.DateModified, now)
	c.Pending = true

	if err := s.repo.Upsert(ctx, &c); err != nil {
		return nil, err
	}
	if data != nil && sessionID != "" {
		if err := s.snapshot(ctx, sessionID, &c); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func (s *ContentService) create(ctx context.Context, in models.ContentInput, noteID string, data *models.Data) (*models.Content, error) {
	exists, err := s.notes.Exists(ctx, noteID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrNoteNotFound, noteID)
	}

	now := s.now()
	c := &models.Content{
		ID:           in.ID,
		NoteID:       noteID,
		Type:         in.Type,
		Data:         models.PlainData(common.EmptyContentBody),
		Conflicted:   in.Conflicted,
		DateResolved: in.DateResolved,
		DateCreated:  now,
		DateEdited:   timeOr(in.DateEdited, now),
		DateModified: timeOr(in.DateModified, now),
		Pending:      true,
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Type == "" {
		c.Type = models.ContentTypeTiptap
	}
	if data != nil {
		c.Data = *data
	}
	if in.LocalOnly != nil {
		c.LocalOnly = *in.LocalOnly
	}

	if err := s.repo.Upsert(ctx, c); err != nil {
		return nil, err
	}
	if in.SessionID != "" {
		if err := s.snapshot(ctx, in.SessionID, c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// isEmptyOverwrite reports a save that would replace a real body with a
// blank or invalid one.
func isEmptyOverwrite(existing *models.Content, incoming models.Data) bool {
	return hasBody(existing.Data) && !hasBody(incoming) && !incoming.IsLocked()
}

func hasBody(d models.Data) bool {
	body, ok := d.Plain()
	return ok && !models.IsEmptyBody(body) && !strings.HasPrefix(body, models.InvalidContentPrefix)
}

func (s *ContentService) snapshot(ctx context.Context, sessionID string, c *models.Content) error {
	e := &models.SessionEntry{
		SessionID:   sessionID,
		NoteID:      c.NoteID,
		Type:        c.Type,
		Data:        c.Data,
		DateCreated: s.now(),
	}
	if err := s.history.Append(ctx, e); err != nil {
		return fmt.Errorf("save session snapshot: %w", err)
	}
	return nil
}

func (s *ContentService) saveMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	return s.attachments.Save(ctx, data, mimeType, "")
}

// Get returns a live record, or nil when it is missing or tombstoned.
func (s *ContentService) Get(ctx context.Context, id string) (*models.Content, error) {
	return s.repo.Get(ctx, id)
}

// FindByNoteID returns the live record of a note, or nil.
func (s *ContentService) FindByNoteID(ctx context.Context, noteID string) (*models.Content, error) {
	return s.repo.FindByNoteID(ctx, noteID)
}

// Conflicts returns records holding an unresolved remote version.
func (s *ContentService) Conflicts(ctx context.Context) ([]*models.Content, error) {
	return s.repo.GetConflicted(ctx)
}

// Remove tombstones records by id.
func (s *ContentService) Remove(ctx context.Context, ids ...string) error {
	n, err := s.repo.SoftDelete(ctx, s.now(), ids...)
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "content removed", "count", n)
	return nil
}

// RemoveByNoteID tombstones the records of the given notes.
func (s *ContentService) RemoveByNoteID(ctx context.Context, noteIDs ...string) error {
	n, err := s.repo.SoftDeleteByNoteID(ctx, s.now(), noteIDs...)
	if err != nil {
		return err
	}
	for _, id := range noteIDs {
		s.sessions.ClearSession(id)
	}
	s.log.Debug(ctx, "content removed", "count", n)
	return nil
}

// DownloadMedia fetches every attachment referenced by cd and returns a
// copy with the media inlined as data URIs. Attachments that cannot be read
// keep their hash reference.
func (s *ContentService) DownloadMedia(ctx context.Context, groupID string, cd models.ContentData, progress DownloadProgress) (models.ContentData, error) {
	hashes, err := richtext.Hashes(cd.Data)
	if err != nil {
		return cd, err
	}
	if len(hashes) == 0 {
		return cd, nil
	}

	if err := s.attachments.QueueDownloads(ctx, groupID, hashes, progress); err != nil {
		return cd, err
	}

	uris := make(map[string]string, len(hashes))
	for _, h := range hashes {
		uri, err := s.attachments.ReadDataURI(ctx, h)
		if err != nil {
			s.log.Warn(ctx, "attachment not inlined", "hash", h, "error", err)
			continue
		}
		uris[h] = uri
	}

	body, err := richtext.InsertMedia(cd.Data, func(hash string) (string, bool) {
		uri, ok := uris[hash]
		return uri, ok
	})
	if err != nil {
		return cd, err
	}
	return models.ContentData{Type: cd.Type, Data: body}, nil
}

// RemoveAttachments strips references to hashes from a record and saves
// it. Locked or missing records are left alone.
func (s *ContentService) RemoveAttachments(ctx context.Context, id string, hashes []string) error {
	c, err := s.repo.Get(ctx, id)
	if err != nil || c == nil {
		return err
	}
	body, ok := c.Data.Plain()
	if !ok {
		return nil
	}

	out, err := richtext.RemoveAttachments(body, hashes)
	if err != nil {
		return err
	}
	if out == body {
		return nil
	}

	d := models.PlainData(out)
	_, err = s.Add(ctx, models.ContentInput{ID: c.ID, NoteID: c.NoteID, Data: &d})
	return err
}

type mergeAction int

const (
	mergeApply mergeAction = iota
	mergeApplyWithBackup
	mergeKeepLocal
	mergeConflict
)

// Merge applies a record received from the server according to the merge
// policy. Overwritten local edits are kept in session history; under the
// manual strategy the remote version is parked in Conflicted.
func (s *ContentService) Merge(ctx context.Context, remote models.Content) error {
	if remote.ID == "" || remote.NoteID == "" {
		return fmt.Errorf("%w: remote content without id", common.ErrInvalidOperation)
	}

	unlock := s.locks.Lock(remote.NoteID)
	defer unlock()

	local, err := s.repo.GetRaw(ctx, remote.ID)
	if err != nil {
		return err
	}
	if local == nil {
		if local, err = s.repo.FindByNoteID(ctx, remote.NoteID); err != nil {
			return err
		}
	}

	switch s.decide(local, &remote) {
	case mergeApplyWithBackup:
		if !local.Deleted {
			if err := s.snapshot(ctx, s.sessions.NewID(), local); err != nil {
				return err
			}
		}
		return s.applyRemote(ctx, local, remote)
	case mergeKeepLocal:
		s.log.Debug(ctx, "remote content older than local edit, kept local", "id", local.ID)
		return nil
	case mergeConflict:
		return s.storeConflict(ctx, local, remote)
	default:
		return s.applyRemote(ctx, local, remote)
	}
}

func (s *ContentService) decide(local, remote *models.Content) mergeAction {
	if local == nil || !local.Pending {
		return mergeApply
	}
	if local.Data.Equal(remote.Data) && local.Deleted == remote.Deleted {
		return mergeApply
	}
	if remote.Deleted && !local.Deleted {
		return mergeKeepLocal
	}
	if s.policy.Strategy == config.MergeManual {
		if local.Deleted {
			return mergeApplyWithBackup
		}
		return mergeConflict
	}

	r, l := remote.DateEdited.UnixMilli(), local.DateEdited.UnixMilli()
	switch {
	case r > l:
		return mergeApplyWithBackup
	case r < l:
		return mergeKeepLocal
	}

	switch s.policy.TieBreak {
	case config.TieBreakLocal:
		return mergeKeepLocal
	case config.TieBreakConflict:
		if local.Deleted {
			return mergeApplyWithBackup
		}
		return mergeConflict
	default:
		return mergeApplyWithBackup
	}
}

func (s *ContentService) applyRemote(ctx context.Context, local *models.Content, remote models.Content) error {
	c := remote
	c.Pending = false
	c.LocalOnly = false
	if c.Type == "" {
		c.Type = models.ContentTypeTiptap
	}
	if c.Data.IsZero() {
		if local != nil && !local.Data.IsZero() {
			c.Data = local.Data
		} else {
			c.Data = models.PlainData(common.EmptyContentBody)
		}
	}

	if err := s.repo.Upsert(ctx, &c); err != nil {
		return err
	}
	if local != nil && local.ID != c.ID && !local.Deleted {
		if _, err := s.repo.SoftDelete(ctx, s.now(), local.ID); err != nil {
			return err
		}
	}

	if body, ok := c.Data.Plain(); ok && !c.Deleted {
		res, err := richtext.Extract(ctx, body, nil)
		if err != nil {
			s.log.Warn(ctx, "merged content not parsed", "id", c.ID, "error", err)
		} else if err := s.reconciler.Reconcile(ctx, c.NoteID, res.Hashes, res.InternalLinks); err != nil {
			return err
		}
	}

	s.publish(ctx, c)
	return nil
}

func (s *ContentService) storeConflict(ctx context.Context, local *models.Content, remote models.Content) error {
	c := *local
	c.Conflicted = &models.ConflictedContent{Data: remote.Data, DateEdited: remote.DateEdited}
	c.DateResolved = nil
	c.DateModified = s.now()
	if err := s.repo.Upsert(ctx, &c); err != nil {
		return err
	}
	s.log.Info(ctx, "content conflict stored", "id", c.ID, "note", c.NoteID)
	s.publish(ctx, c)
	return nil
}

func (s *ContentService) publish(ctx context.Context, c models.Content) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishItemMerged(ctx, c); err != nil {
		s.log.Warn(ctx, "merge event not published", "id", c.ID, "error", err)
	}
}

// ResolveConflict keeps one side of a stored conflict. Keeping the remote
// side moves the local body into session history first.
func (s *ContentService) ResolveConflict(ctx context.Context, id string, keep models.ConflictSide) error {
	if keep != models.KeepLocal && keep != models.KeepRemote {
		return fmt.Errorf("%w: unknown conflict side %q", common.ErrInvalidOperation, keep)
	}

	c, unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	if c.Conflicted == nil {
		return nil
	}

	now := s.now()
	if keep == models.KeepRemote && !c.Conflicted.Data.IsZero() {
		if err := s.snapshot(ctx, s.sessions.NewID(), c); err != nil {
			return err
		}
		c.Data = c.Conflicted.Data
		c.DateEdited = c.Conflicted.DateEdited
	}
	c.Conflicted = nil
	c.DateResolved = &now
	c.DateModified = now
	c.Pending = true

	if err := s.repo.Upsert(ctx, c); err != nil {
		return err
	}

	if body, ok := c.Data.Plain(); ok {
		res, err := richtext.Extract(ctx, body, nil)
		if err != nil {
			return err
		}
		return s.reconciler.Reconcile(ctx, c.NoteID, res.Hashes, res.InternalLinks)
	}
	return nil
}

// Lock encrypts the body of a record with key. Locked records stay as they
// are.
func (s *ContentService) Lock(ctx context.Context, id string, key []byte) error {
	c, unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	body, ok := c.Data.Plain()
	if !ok {
		return nil
	}
	env, err := models.Seal(key, []byte(body))
	if err != nil {
		return fmt.Errorf("lock content %s: %w", id, err)
	}
	c.Data = models.EncryptedData(env)
	c.DateModified = s.now()
	c.Pending = true
	return s.repo.Upsert(ctx, c)
}

// Unlock decrypts the body of a record with key. A malformed or foreign
// envelope is an error and the record is left untouched.
func (s *ContentService) Unlock(ctx context.Context, id string, key []byte) error {
	c, unlock, err := s.lockRecord(ctx, id)
	if err != nil {
		return err
	}
	defer unlock()

	env, ok := c.Data.Cipher()
	if !ok {
		return nil
	}
	plain, err := env.Open(key)
	if err != nil {
		return fmt.Errorf("unlock content %s: %w", id, err)
	}
	c.Data = models.PlainData(string(plain))
	c.DateModified = s.now()
	c.Pending = true
	return s.repo.Upsert(ctx, c)
}

// lockRecord takes the note lock of a live record and re-reads it under
// the lock.
func (s *ContentService) lockRecord(ctx context.Context, id string) (*models.Content, func(), error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, fmt.Errorf("content %s: %w", id, common.ErrorNotFound)
	}

	unlock := s.locks.Lock(c.NoteID)
	c, err = s.repo.Get(ctx, id)
	if err == nil && c == nil {
		err = fmt.Errorf("content %s: %w", id, common.ErrorNotFound)
	}
	if err != nil {
		unlock()
		return nil, nil, err
	}
	return c, unlock, nil
}

func timeOr(t *time.Time, def time.Time) time.Time {
	if t != nil {
		return *t
	}
	return def
}
