package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/events"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/richtext"
	"github.com/dmitrijs2005/notekeeper/internal/client/services"
	"github.com/dmitrijs2005/notekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

type authAPI interface {
	Register(ctx context.Context, email string, password []byte) error
	Login(ctx context.Context, email string, password []byte) error
	OfflineLogin(ctx context.Context, email string, password []byte) error
	Logout(ctx context.Context) error
	User(ctx context.Context) (*models.User, error)
	MasterKey() []byte
	Ping(ctx context.Context) error
}

type notesAPI interface {
	Create(ctx context.Context, title string) (string, error)
	Get(ctx context.Context, id string) (*models.Note, error)
	List(ctx context.Context) ([]*models.Note, error)
	Delete(ctx context.Context, id string) error
}

type contentAPI interface {
	Add(ctx context.Context, in models.ContentInput) (string, error)
	FindByNoteID(ctx context.Context, noteID string) (*models.Content, error)
	Conflicts(ctx context.Context) ([]*models.Content, error)
	ResolveConflict(ctx context.Context, id string, keep models.ConflictSide) error
	Lock(ctx context.Context, id string, key []byte) error
	Unlock(ctx context.Context, id string, key []byte) error
}

type historyAPI interface {
	List(ctx context.Context, noteID string) ([]*models.SessionEntry, error)
}

type sessionAPI interface {
	Get(noteID string) (string, bool)
	NewSession(noteID string) string
}

type monographAPI interface {
	Load(ctx context.Context) error
	Publish(ctx context.Context, noteID string, opts services.PublishOptions) (string, error)
	Unpublish(ctx context.Context, noteID string) error
	IsPublished(noteID string) bool
	All() []string
}

type syncAPI interface {
	Run(ctx context.Context, req syncer.Request)
}

type mergeEvents interface {
	SubscribeItemMerged(ctx context.Context) (<-chan events.ItemMerged, func(), error)
}

// Deps are the services the App drives.
type Deps struct {
	Auth       authAPI
	Notes      notesAPI
	Content    contentAPI
	History    historyAPI
	Sessions   sessionAPI
	Monographs monographAPI
	Sync       syncAPI
	Events     mergeEvents
	Log        logging.Logger

	// OnlineCheckInterval enables the connectivity watcher when positive.
	OnlineCheckInterval time.Duration
}

type App struct {
	auth       authAPI
	notes      notesAPI
	content    contentAPI
	history    historyAPI
	sessions   sessionAPI
	monographs monographAPI
	sync       syncAPI
	events     mergeEvents
	log        logging.Logger
	md         *richtext.Markdown

	onlineCheckInterval time.Duration

	reader *bufio.Reader
	out    io.Writer

	mu             sync.Mutex
	userName       string
	mode           Mode
	resetRequested bool
}

func NewApp(d Deps) *App {
	return &App{
		auth:                d.Auth,
		notes:               d.Notes,
		content:             d.Content,
		history:             d.History,
		sessions:            d.Sessions,
		monographs:          d.Monographs,
		sync:                d.Sync,
		events:              d.Events,
		log:                 d.Log,
		md:                  richtext.NewMarkdown(),
		onlineCheckInterval: d.OnlineCheckInterval,
		reader:              bufio.NewReader(os.Stdin),
		out:                 os.Stdout,
	}
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	changed := a.mode != mode
	a.mode = mode
	a.mu.Unlock()
	if changed {
		fmt.Fprintf(a.out, "Switched to %s mode\n", mode)
	}
}

func (a *App) Mode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

func (a *App) isLoggedIn() bool {
	return a.auth.MasterKey() != nil
}

// ResetRequested reports whether the user confirmed a local data reset.
// The caller performs it after closing the database.
func (a *App) ResetRequested() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.resetRequested
}

func (a *App) getStatus() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	s := ""
	if a.userName != "" {
		s = a.userName + " "
	}
	if a.mode != "" {
		s = s + string(a.mode)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

// Root runs the REPL until the user exits. A login prompt is shown first.
func (a *App) Root(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	fmt.Fprintln(a.out, "Welcome to notekeeper (type 'help' for commands)")

	if err := a.Login(ctx); err != nil {
		a.fail(ctx, "login", err)
	}

	if a.onlineCheckInterval > 0 {
		go syncer.WatchOnline(ctx, a.auth, a.onlineCheckInterval, a.log, a.onConnectivity(ctx))
	}
	if a.events != nil {
		a.watchMerges(ctx)
	}

	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) onConnectivity(ctx context.Context) func(bool) {
	return func(online bool) {
		if !a.isLoggedIn() {
			return
		}
		if !online {
			a.setMode(ModeOffline)
			return
		}
		a.setMode(ModeOnline)
		a.requestSync(ctx, syncer.TypeFull)
	}
}

func (a *App) watchMerges(ctx context.Context) {
	ch, unsubscribe, err := a.events.SubscribeItemMerged(ctx)
	if err != nil {
		a.log.Warn(ctx, "merge notifications unavailable", "error", err)
		return
	}
	go func() {
		defer unsubscribe()
		for ev := range ch {
			fmt.Fprintf(a.out, "\nnote %s updated from server\n", ev.Item.NoteID)
		}
	}()
}

// requestSync schedules a background sync without waiting for it.
func (a *App) requestSync(ctx context.Context, t syncer.Type) {
	if a.sync == nil || !a.isLoggedIn() {
		return
	}
	a.sync.Run(ctx, syncer.Request{Type: t})
}

// fail reports a command error to the user and the log.
func (a *App) fail(ctx context.Context, op string, err error) {
	a.log.Error(ctx, "command failed", "op", op, "error", err)
	fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
}
