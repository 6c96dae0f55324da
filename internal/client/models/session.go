package models

import "time"

// SessionEntry is an immutable point-in-time snapshot of a note body taken
// during an editing session.
type SessionEntry struct {
	// Seq orders snapshots; assigned by storage.
	Seq         int64
	SessionID   string
	NoteID      string
	Type        ContentType
	Data        Data
	DateCreated time.Time
}

// Locked mirrors the active data variant.
func (e *SessionEntry) Locked() bool {
	return e.Data.IsLocked()
}
