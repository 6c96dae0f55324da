package syncer

import (
	"context"
	"sync"
)

// BackgroundRunner runs work detached from the caller's cancellation and
// lets shutdown wait for it.
type BackgroundRunner struct {
	base context.Context
	wg   sync.WaitGroup
}

// NewBackgroundRunner derives the work context from ctx without its
// cancellation; values such as loggers are kept.
func NewBackgroundRunner(ctx context.Context) *BackgroundRunner {
	return &BackgroundRunner{base: context.WithoutCancel(ctx)}
}

// Go starts fn in a goroutine.
func (r *BackgroundRunner) Go(fn func(ctx context.Context)) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fn(r.base)
	}()
}

// Wait blocks until every started fn has returned.
func (r *BackgroundRunner) Wait() {
	r.wg.Wait()
}
