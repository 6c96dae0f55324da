// Package metadata is a small key/value store for client state such as the
// cached user, tokens, last sync time and the published-monograph index.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeyUser       = "user"
	KeyTokens     = "tokens"
	KeySalt       = "salt"
	KeyVerifier   = "verifier"
	KeyLastSynced = "lastSynced"
	KeyMonographs = "monographs"
)

type Repository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
