// Package syncer drives synchronisation of local content with the server:
// a single-flight orchestrator with debouncing and a pluggable transport.
package syncer

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
)

// Type selects the direction of a sync run.
type Type string

const (
	TypeFull  Type = "full"
	TypeSend  Type = "send"
	TypeFetch Type = "fetch"
)

// Status is the outcome reported to OnCompleted.
type Status string

const (
	StatusPassed Status = "passed"
	StatusFailed Status = "failed"
)

// State of the orchestrator.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

// Request asks for a sync run.
type Request struct {
	// Forced ignores the stored last sync time and fetches everything.
	Forced bool
	Type   Type
	// LastSyncTime overrides the stored last sync time when non-zero.
	LastSyncTime time.Time
	// OnCompleted is called once with the outcome of the run that served
	// this request.
	OnCompleted func(Status)
}

// Transport performs one sync run.
type Transport interface {
	Sync(ctx context.Context, req Request) error
}

// UserProvider reports the signed-in user.
type UserProvider interface {
	User(ctx context.Context) (*models.User, error)
}

// Pinger checks network reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ErrorReporter receives sync failures worth surfacing to the user.
type ErrorReporter interface {
	Report(ctx context.Context, err error)
}

// ReporterFunc adapts a function to ErrorReporter.
type ReporterFunc func(ctx context.Context, err error)

func (f ReporterFunc) Report(ctx context.Context, err error) { f(ctx, err) }

// Options configure an Orchestrator.
type Options struct {
	Debounce time.Duration
	Disabled bool
}

// Orchestrator serialises sync runs. At most one run is in flight; requests
// arriving meanwhile are coalesced into a single pending request that is
// replayed when the run finishes.
type Orchestrator struct {
	transport Transport
	users     UserProvider
	pinger    Pinger
	reporter  ErrorReporter
	runner    *BackgroundRunner
	log       logging.Logger
	debounce  time.Duration
	disabled  bool

	mu       sync.Mutex
	state    State
	pending  *Request
	timer    *time.Timer
	timerGen uint64
	closed   bool
}

func NewOrchestrator(
	transport Transport,
	users UserProvider,
	pinger Pinger,
	reporter ErrorReporter,
	runner *BackgroundRunner,
	log logging.Logger,
	opts Options,
) *Orchestrator {
	return &Orchestrator{
		transport: transport,
		users:     users,
		pinger:    pinger,
		reporter:  reporter,
		runner:    runner,
		log:       log,
		debounce:  opts.Debounce,
		disabled:  opts.Disabled,
		state:     StateIdle,
	}
}

// Run schedules a sync. It never blocks on the sync itself.
func (o *Orchestrator) Run(ctx context.Context, req Request) {
	if req.Type == "" {
		req.Type = TypeFull
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		if req.OnCompleted != nil {
			go req.OnCompleted(StatusFailed)
		}
		return
	}

	o.pending = coalesce(o.pending, req)

	if o.state == StateRunning {
		o.log.Debug(ctx, "sync request queued", "reason", common.ErrSyncAlreadyRunning)
		return
	}
	if o.debounce > 0 {
		o.scheduleLocked()
		return
	}
	o.startLocked()
}

// coalesce replaces prev with next. Completion callbacks of replaced
// requests still fire with the outcome of the run that supersedes them.
func coalesce(prev *Request, next Request) *Request {
	if prev == nil || prev.OnCompleted == nil {
		return &next
	}
	a, b := prev.OnCompleted, next.OnCompleted
	if b == nil {
		next.OnCompleted = a
	} else {
		next.OnCompleted = func(s Status) { a(s); b(s) }
	}
	return &next
}

// scheduleLocked restarts the debounce window. Every call arms a fresh timer
// so a fire already waiting on the lock is recognised as stale.
func (o *Orchestrator) scheduleLocked() {
	if o.timer != nil {
		o.timer.Stop()
	}
	o.timerGen++
	gen := o.timerGen
	o.timer = time.AfterFunc(o.debounce, func() { o.fire(gen) })
}

func (o *Orchestrator) fire(gen uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.timerGen {
		return
	}
	o.timer = nil
	if o.closed || o.state == StateRunning || o.pending == nil {
		return
	}
	o.startLocked()
}

func (o *Orchestrator) startLocked() {
	req := *o.pending
	o.pending = nil
	o.state = StateRunning

	o.runner.Go(func(ctx context.Context) {
		status := o.execute(ctx, req)
		if req.OnCompleted != nil {
			req.OnCompleted(status)
		}
		o.finish()
	})
}

func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateIdle
	if o.closed || o.pending == nil {
		return
	}
	if o.debounce > 0 {
		o.scheduleLocked()
		return
	}
	o.startLocked()
}

func (o *Orchestrator) execute(ctx context.Context, req Request) Status {
	log := o.log.With("type", req.Type, "forced", req.Forced)

	if o.disabled {
		log.Info(ctx, "sync skipped", "reason", common.ErrSyncDisabled)
		return StatusFailed
	}

	user, err := o.users.User(ctx)
	if err != nil || user == nil {
		log.Info(ctx, "sync skipped", "reason", common.ErrAuthenticationRequired, "error", err)
		return StatusFailed
	}

	if err := o.pinger.Ping(ctx); err != nil {
		log.Info(ctx, "sync skipped", "reason", common.ErrOffline, "error", err)
		return StatusFailed
	}

	start := time.Now()
	if err := o.transport.Sync(ctx, req); err != nil {
		if isBenign(err) {
			log.Warn(ctx, "sync interrupted", "error", err)
		} else {
			log.Error(ctx, "sync failed", "error", err)
			if o.reporter != nil {
				o.reporter.Report(ctx, err)
			}
		}
		return StatusFailed
	}

	log.Info(ctx, "sync finished", "elapsed", time.Since(start))
	return StatusPassed
}

// isBenign reports errors caused by transient connectivity or overlapping
// runs rather than by data or logic problems.
func isBenign(err error) bool {
	if errors.Is(err, common.ErrSyncAlreadyRunning) ||
		errors.Is(err, common.ErrOffline) ||
		errors.Is(err, client.ErrUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Wait blocks until in-flight runs, including replayed ones, have finished.
func (o *Orchestrator) Wait() {
	for {
		o.runner.Wait()
		o.mu.Lock()
		idle := o.state == StateIdle && (o.pending == nil || o.closed)
		o.mu.Unlock()
		if idle {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Close stops accepting requests, fails the pending one and waits for the
// running one.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	if o.timer != nil {
		o.timer.Stop()
		o.timer = nil
	}
	pending := o.pending
	o.pending = nil
	o.mu.Unlock()

	if pending != nil && pending.OnCompleted != nil {
		pending.OnCompleted(StatusFailed)
	}
	o.runner.Wait()
}
