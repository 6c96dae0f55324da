package models

import "time"

// Note is the owner of a content record.
type Note struct {
	ID           string
	Title        string
	DateCreated  time.Time
	DateModified time.Time
	Deleted      bool
}
