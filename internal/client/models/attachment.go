package models

import "time"

// Attachment is local metadata for an encrypted blob stored on disk and
// addressed by the hash of its plaintext.
type Attachment struct {
	ID           string
	Hash         string
	Filename     string
	MimeType     string
	Size         int64
	Uploaded     bool
	DateCreated  time.Time
	DateModified time.Time
	Deleted      bool
}
