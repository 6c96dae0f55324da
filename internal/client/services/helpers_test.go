package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/config"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeKeys struct {
	key []byte
}

func (f *fakeKeys) MasterKey() []byte {
	if f.key == nil {
		return nil
	}
	return append([]byte(nil), f.key...)
}

type fakeAuth struct {
	user     *models.User
	token    string
	tokenErr error
}

func (f *fakeAuth) User(context.Context) (*models.User, error) { return f.user, nil }

func (f *fakeAuth) AccessToken(context.Context) (string, error) {
	if f.tokenErr != nil {
		return "", f.tokenErr
	}
	if f.token == "" {
		return "", common.ErrAuthenticationRequired
	}
	return f.token, nil
}

type apiCall struct {
	Method string
	Path   string
	Body   any
	Token  string
}

// fakeAPI records every call and answers through handle.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []apiCall
	handle  func(method, path string, body any) (any, error)
	PingErr error
}

func (f *fakeAPI) Get(_ context.Context, path, token string, out any) error {
	return f.do("GET", path, nil, token, out)
}

func (f *fakeAPI) Post(_ context.Context, path string, body any, token string, out any) error {
	return f.do("POST", path, body, token, out)
}

func (f *fakeAPI) Patch(_ context.Context, path string, body any, token string, out any) error {
	return f.do("PATCH", path, body, token, out)
}

func (f *fakeAPI) Delete(_ context.Context, path, token string) error {
	return f.do("DELETE", path, nil, token, nil)
}

func (f *fakeAPI) Ping(context.Context) error { return f.PingErr }

func (f *fakeAPI) do(method, path string, body any, token string, out any) error {
	f.mu.Lock()
	f.calls = append(f.calls, apiCall{Method: method, Path: path, Body: body, Token: token})
	handle := f.handle
	f.mu.Unlock()

	if handle == nil {
		return nil
	}
	resp, err := handle(method, path, body)
	if err != nil || resp == nil || out == nil {
		return err
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, out)
}

func (f *fakeAPI) Calls() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]apiCall(nil), f.calls...)
}

type recordingPublisher struct {
	mu    sync.Mutex
	items []models.Content
}

func (r *recordingPublisher) PublishItemMerged(_ context.Context, item models.Content) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, item)
	return nil
}

func (r *recordingPublisher) Items() []models.Content {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Content(nil), r.items...)
}

// ---- environment ----

type testEnv struct {
	db          *sql.DB
	repos       *client.Repositories
	keys        *fakeKeys
	auth        *fakeAuth
	api         *fakeAPI
	sessions    *SessionManager
	attachments *AttachmentService
	reconciler  *RelationReconciler
	content     *ContentService
	notes       *NoteService
	history     *HistoryService
	events      *recordingPublisher
	dir         string
}

var defaultPolicy = MergePolicy{Strategy: config.MergeLWW, TieBreak: config.TieBreakRemote}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestEnv(t *testing.T, policy MergePolicy) *testEnv {
	t.Helper()

	db := setupDB(t)
	repos := client.NewRepositories(db)
	log := logging.NewNop()

	env := &testEnv{
		db:       db,
		repos:    repos,
		keys:     &fakeKeys{key: common.GenerateRandByteArray(cryptox.KeySize)},
		auth:     &fakeAuth{},
		api:      &fakeAPI{},
		sessions: NewSessionManager(time.Hour),
		events:   &recordingPublisher{},
		dir:      filepath.Join(t.TempDir(), "blobs"),
	}
	env.attachments = NewAttachmentService(repos.Attachments, env.dir, env.keys, env.auth, env.api, nil, 2, log)
	env.reconciler = NewRelationReconciler(repos.Relations, repos.Attachments, repos.Notes, log)
	env.content = NewContentService(ContentDeps{
		Repo:        repos.Content,
		History:     repos.History,
		Notes:       repos.Notes,
		Attachments: env.attachments,
		Reconciler:  env.reconciler,
		Sessions:    env.sessions,
		Events:      env.events,
		Policy:      policy,
		Log:         log,
	})
	env.notes = NewNoteService(repos.Notes, env.content)
	env.history = NewHistoryService(repos.History)
	return env
}

func (e *testEnv) newNote(t *testing.T, title string) (noteID, contentID string) {
	t.Helper()
	ctx := context.Background()
	noteID, err := e.notes.Create(ctx, title)
	require.NoError(t, err)
	c, err := e.content.FindByNoteID(ctx, noteID)
	require.NoError(t, err)
	require.NotNil(t, c)
	return noteID, c.ID
}

func (e *testEnv) save(t *testing.T, noteID, body string) string {
	t.Helper()
	d := models.PlainData(body)
	id, err := e.content.Add(context.Background(), models.ContentInput{NoteID: noteID, Data: &d})
	require.NoError(t, err)
	return id
}

func plainBody(t *testing.T, c *models.Content) string {
	t.Helper()
	require.NotNil(t, c)
	body, ok := c.Data.Plain()
	require.True(t, ok, "content is locked")
	return body
}
