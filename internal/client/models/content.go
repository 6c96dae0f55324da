package models

import (
	"encoding/json"
	"time"
)

// ContentType is the format tag of a content body.
type ContentType string

const ContentTypeTiptap ContentType = "tiptap"

// Content is the persisted body of a note.
type Content struct {
	// ID is stable for the life of the record.
	ID string `json:"id"`

	// NoteID is the owning note. One live record exists per note.
	NoteID string `json:"noteId"`

	Type ContentType `json:"type"`

	// Data is either plaintext markup or a cipher envelope.
	Data Data `json:"data"`

	// LocalOnly records are never synced.
	LocalOnly bool `json:"localOnly"`

	// Conflicted holds the remote version kept for manual resolution.
	Conflicted *ConflictedContent `json:"conflicted,omitempty"`

	// DateResolved is set when a conflict was resolved.
	DateResolved *time.Time `json:"dateResolved,omitempty"`

	DateCreated  time.Time `json:"dateCreated"`
	DateEdited   time.Time `json:"dateEdited"`
	DateModified time.Time `json:"dateModified"`

	// Deleted marks the record as a tombstone kept for sync propagation.
	Deleted bool `json:"deleted"`

	// Pending marks local changes not yet pushed. Never sent over the wire.
	Pending bool `json:"-"`
}

// Locked mirrors the active data variant.
func (c *Content) Locked() bool {
	return c.Data.IsLocked()
}

// Normalize enforces DateModified >= DateEdited >= DateCreated by raising
// the later timestamps where needed.
func (c *Content) Normalize() {
	if c.DateEdited.Before(c.DateCreated) {
		c.DateEdited = c.DateCreated
	}
	if c.DateModified.Before(c.DateEdited) {
		c.DateModified = c.DateEdited
	}
}

// ConflictedContent is the remote side of an unresolved conflict.
type ConflictedContent struct {
	Data       Data      `json:"data"`
	DateEdited time.Time `json:"dateEdited"`
}

// ConflictSide selects which version survives a manual resolution.
type ConflictSide string

const (
	KeepLocal  ConflictSide = "local"
	KeepRemote ConflictSide = "remote"
)

// ContentData is a detached {type, data} pair as handed to publishers and
// media resolution.
type ContentData struct {
	Type ContentType `json:"type"`
	Data string      `json:"data"`
}

// ContentInput is a partial content record passed to ContentService.Add.
// Nil pointers mean "not supplied" and leave stored fields untouched.
type ContentInput struct {
	ID     string
	NoteID string
	Type   ContentType

	// Data is the typed body. RawData is used instead when Data is nil and
	// carries loosely shaped JSON from outer layers.
	Data    *Data
	RawData json.RawMessage

	LocalOnly    *bool
	Conflicted   *ConflictedContent
	DateResolved *time.Time
	DateEdited   *time.Time
	DateModified *time.Time

	// SessionID appends a history snapshot for the saved data.
	SessionID string

	// Remote marks content that arrived from the server. Such content must go
	// through the merge path.
	Remote bool
}

// HasData reports whether a body was supplied in either form.
func (in *ContentInput) HasData() bool {
	return in.Data != nil || len(in.RawData) > 0
}
