package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/richtext"
	"github.com/dmitrijs2005/notekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

var errUsage = errors.New("wrong arguments")

const previewLen = 60

func usage(format string) error {
	return fmt.Errorf("%w, usage: %s", errUsage, format)
}

// New creates a note with an empty body.
func (a *App) New(ctx context.Context, args []string) error {
	title := strings.Join(args, " ")
	if title == "" {
		var err error
		if title, err = getSimpleText(a.reader, "Enter title", a.out); err != nil {
			return err
		}
	}

	id, err := a.notes.Create(ctx, title)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Created note %s\n", id)
	a.requestSync(ctx, syncer.TypeSend)
	return nil
}

// List prints all live notes, marking published ones.
func (a *App) List(ctx context.Context, _ []string) error {
	list, err := a.notes.List(ctx)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		fmt.Fprintln(a.out, "No notes")
		return nil
	}
	for _, n := range list {
		mark := " "
		if a.monographs.IsPublished(n.ID) {
			mark = "*"
		}
		fmt.Fprintf(a.out, "%s %s  %s  %s\n", mark, n.ID, n.DateModified.Format(time.DateTime), n.Title)
	}
	return nil
}

// Write replaces the body of a note with markdown typed by the user.
func (a *App) Write(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("write <note-id>")
	}
	noteID := args[0]

	source, err := GetMultiline(a.reader, "Enter markdown", a.out)
	if err != nil {
		return err
	}
	html, err := a.md.Convert([]byte(source))
	if err != nil {
		return err
	}

	sessionID, ok := a.sessions.Get(noteID)
	if !ok {
		sessionID = a.sessions.NewSession(noteID)
	}

	data := models.PlainData(html)
	id, err := a.content.Add(ctx, models.ContentInput{
		NoteID:    noteID,
		Type:      models.ContentTypeTiptap,
		Data:      &data,
		SessionID: sessionID,
	})
	if err != nil {
		return err
	}
	if id == "" {
		return fmt.Errorf("note %s: %w", noteID, common.ErrNoteNotFound)
	}

	fmt.Fprintln(a.out, "Saved")
	a.requestSync(ctx, syncer.TypeSend)
	return nil
}

// Show prints a note body as plain text.
func (a *App) Show(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("show <note-id>")
	}

	note, err := a.notes.Get(ctx, args[0])
	if err != nil {
		return err
	}
	if note == nil {
		return fmt.Errorf("note %s: %w", args[0], common.ErrNoteNotFound)
	}

	c, err := a.content.FindByNoteID(ctx, note.ID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "# %s\n", note.Title)
	if c == nil {
		return nil
	}
	if c.Conflicted != nil {
		fmt.Fprintf(a.out, "(conflict pending, content id %s)\n", c.ID)
	}
	body, ok := c.Data.Plain()
	if !ok {
		fmt.Fprintln(a.out, "(locked)")
		return nil
	}
	fmt.Fprintln(a.out, richtext.Text(body))
	return nil
}

// Remove deletes a note together with its content.
func (a *App) Remove(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("rm <note-id>")
	}
	if err := a.notes.Delete(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted")
	a.requestSync(ctx, syncer.TypeSend)
	return nil
}

// History lists the session snapshots of a note, newest last.
func (a *App) History(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return usage("history <note-id>")
	}
	entries, err := a.history.List(ctx, args[0])
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(a.out, "No history")
		return nil
	}
	for _, e := range entries {
		fmt.Fprintf(a.out, "%d  %s  %s  %s\n", e.Seq, e.SessionID, e.DateCreated.Format(time.DateTime), preview(e.Data))
	}
	return nil
}

func preview(d models.Data) string {
	body, ok := d.Plain()
	if !ok {
		return "(locked)"
	}
	text := strings.Join(strings.Fields(richtext.Text(body)), " ")
	if r := []rune(text); len(r) > previewLen {
		text = string(r[:previewLen]) + "..."
	}
	return text
}
