package models

import "errors"

// ErrMonographShape is returned when a monograph carries both or neither of
// its content variants.
var ErrMonographShape = errors.New("monograph must carry exactly one of content or encryptedContent")

// Monograph is a published, self-contained snapshot of a note.
type Monograph struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	UserID       string `json:"userId"`
	SelfDestruct bool   `json:"selfDestruct"`

	Content          *ContentData    `json:"content,omitempty"`
	EncryptedContent *CipherEnvelope `json:"encryptedContent,omitempty"`
}

// Validate enforces the content/encryptedContent exclusivity.
func (m *Monograph) Validate() error {
	if (m.Content == nil) == (m.EncryptedContent == nil) {
		return ErrMonographShape
	}
	if m.EncryptedContent != nil {
		return m.EncryptedContent.Validate()
	}
	return nil
}

// Locked reports whether the monograph is password protected.
func (m *Monograph) Locked() bool {
	return m.EncryptedContent != nil
}
