package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/services"
)

// Publish publishes a note as a monograph. Flags: --password prompts for a
// password, --self-destruct removes it after the first view.
func (a *App) Publish(ctx context.Context, args []string) error {
	var (
		noteID string
		opts   services.PublishOptions
		ask    bool
	)
	for _, arg := range args {
		switch arg {
		case "--password":
			ask = true
		case "--self-destruct":
			opts.SelfDestruct = true
		default:
			if noteID != "" {
				return usage("publish <note-id> [--password] [--self-destruct]")
			}
			noteID = arg
		}
	}
	if noteID == "" {
		return usage("publish <note-id> [--password] [--self-destruct]")
	}

	if ask {
		pw, err := getPassword(a.out)
		if err != nil {
			return err
		}
		opts.Password = string(pw)
	}
	opts.Progress = func(done, total int) {
		fmt.Fprintf(a.out, "media %d/%d\n", done, total)
	}

	id, err := a.monographs.Publish(ctx, noteID, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Published as %s\n", id)
	return nil
}

func (a *App) Unpublish(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("unpublish <note-id>")
	}
	if err := a.monographs.Unpublish(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Unpublished")
	return nil
}

// Published lists the ids of published notes.
func (a *App) Published(_ context.Context, _ []string) error {
	ids := a.monographs.All()
	if len(ids) == 0 {
		fmt.Fprintln(a.out, "Nothing published")
		return nil
	}
	for _, id := range ids {
		fmt.Fprintln(a.out, id)
	}
	return nil
}
