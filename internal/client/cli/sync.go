package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// Sync runs a sync and waits for its outcome. Arguments: an optional
// direction (full, send, fetch) and --force to refetch everything.
func (a *App) Sync(ctx context.Context, args []string) error {
	req := syncer.Request{Type: syncer.TypeFull}
	for _, arg := range args {
		switch arg {
		case string(syncer.TypeFull), string(syncer.TypeSend), string(syncer.TypeFetch):
			req.Type = syncer.Type(arg)
		case "--force":
			req.Forced = true
		default:
			return usage("sync [full|send|fetch] [--force]")
		}
	}

	done := make(chan syncer.Status, 1)
	req.OnCompleted = func(s syncer.Status) { done <- s }
	a.sync.Run(ctx, req)

	select {
	case s := <-done:
		fmt.Fprintf(a.out, "Sync %s\n", s)
	case <-ctx.Done():
		return ctx.Err()
	}
	return nil
}

// Conflicts lists records waiting for manual resolution.
func (a *App) Conflicts(ctx context.Context, _ []string) error {
	list, err := a.content.Conflicts(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No conflicts")
		return nil
	}
	for _, c := range list {
		fmt.Fprintf(a.out, "%s  note %s\n  local:  %s\n  remote: %s\n",
			c.ID, c.NoteID, preview(c.Data), preview(c.Conflicted.Data))
	}
	return nil
}

// Resolve keeps one side of a conflict.
func (a *App) Resolve(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return usage("resolve <content-id> local|remote")
	}
	side := models.ConflictSide(args[1])
	if side != models.KeepLocal && side != models.KeepRemote {
		return usage("resolve <content-id> local|remote")
	}
	if err := a.content.ResolveConflict(ctx, args[0], side); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Resolved")
	a.requestSync(ctx, syncer.TypeSend)
	return nil
}

// Lock encrypts a note body with the vault key.
func (a *App) Lock(ctx context.Context, args []string) error {
	return a.withVault(ctx, args, "lock", a.content.Lock)
}

// Unlock decrypts a note body with the vault key.
func (a *App) Unlock(ctx context.Context, args []string) error {
	return a.withVault(ctx, args, "unlock", a.content.Unlock)
}

func (a *App) withVault(ctx context.Context, args []string, name string, op func(context.Context, string, []byte) error) error {
	if len(args) != 1 {
		return usage(name + " <note-id>")
	}
	key := a.auth.MasterKey()
	if key == nil {
		return common.ErrVaultLocked
	}
	defer common.WipeByteArray(key)

	c, err := a.content.FindByNoteID(ctx, args[0])
	if err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("note %s: %w", args[0], common.ErrNoteNotFound)
	}
	if err := op(ctx, c.ID, key); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Done")
	a.requestSync(ctx, syncer.TypeSend)
	return nil
}

// Reset asks for confirmation and flags the local data for deletion on exit.
func (a *App) Reset(_ context.Context, _ []string) (bool, error) {
	ok, err := Confirm(a.reader, "Delete all local notes, history and attachments?", a.out)
	if err != nil || !ok {
		return false, err
	}
	a.mu.Lock()
	a.resetRequested = true
	a.mu.Unlock()
	fmt.Fprintln(a.out, "Local data will be removed on exit")
	return true, nil
}
