package services

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/history"
	"github.com/patrickmn/go-cache"
)

// SessionManager tracks the active editing session of each note. Entries
// expire after ttl of inactivity.
type SessionManager struct {
	cache *cache.Cache
	now   func() time.Time

	mu   sync.Mutex
	last int64
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	return &SessionManager{
		cache: cache.New(ttl, ttl/2),
		now:   time.Now,
	}
}

// NewSession starts a session for noteID and returns its id.
func (m *SessionManager) NewSession(noteID string) string {
	id := m.NewID()
	m.cache.Set(noteID, id, cache.DefaultExpiration)
	return id
}

// NewID returns a session id without making it the active one. Ids are
// millisecond timestamps, strictly increasing within the process.
func (m *SessionManager) NewID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.now().UnixMilli()
	if ts <= m.last {
		ts = m.last + 1
	}
	m.last = ts
	return strconv.FormatInt(ts, 10)
}

// Get returns the active session of noteID.
func (m *SessionManager) Get(noteID string) (string, bool) {
	if x, found := m.cache.Get(noteID); found {
		return x.(string), true
	}
	return "", false
}

// ClearSession forgets the active session of noteID.
func (m *SessionManager) ClearSession(noteID string) {
	m.cache.Delete(noteID)
}

// HistoryService reads session snapshots.
type HistoryService struct {
	repo history.Repository
}

func NewHistoryService(repo history.Repository) *HistoryService {
	return &HistoryService{repo: repo}
}

// List returns every snapshot of a note, newest first.
func (h *HistoryService) List(ctx context.Context, noteID string) ([]*models.SessionEntry, error) {
	return h.repo.ListByNote(ctx, noteID)
}

// Latest returns the newest snapshot of a session, or nil.
func (h *HistoryService) Latest(ctx context.Context, sessionID, noteID string) (*models.SessionEntry, error) {
	return h.repo.Latest(ctx, sessionID, noteID)
}
