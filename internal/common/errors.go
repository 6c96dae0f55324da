// Package common defines shared constants and sentinel errors used across
// the content, publishing and sync layers. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Content store errors.
	ErrInvalidOperation = errors.New("invalid operation")
	ErrMalformedCipher  = errors.New("malformed cipher envelope")
	ErrNoteNotFound     = errors.New("note not found")
	ErrVaultLocked      = errors.New("master key is not available, please login")

	// Publishing errors.
	ErrAuthenticationRequired = errors.New("please login to publish a note")
	ErrEmailNotConfirmed      = errors.New("please confirm your email to publish a note")
	ErrEmptyNote              = errors.New("cannot publish an empty note")
	ErrContentLocked          = errors.New("locked notes cannot be published")
	ErrNotPublished           = errors.New("note is not published")

	// Sync errors.
	ErrSyncAlreadyRunning = errors.New("sync already running")
	ErrSyncDisabled       = errors.New("sync is disabled")
	ErrOffline            = errors.New("network unreachable")
	ErrUnauthorized       = errors.New("unauthorized")

	// Local storage errors.
	ErrLocalDataCorrupted = errors.New("local data corrupted")
	ErrResetNotConfirmed  = errors.New("reset of local data was not confirmed")
)
