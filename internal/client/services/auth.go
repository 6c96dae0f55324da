// Package services contains the application services of the notekeeper
// client: authentication, the content record store, session history,
// attachments, relation reconciliation and monograph publishing.
package services

import (
	"context"
	"crypto/subtle"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/models"
	"github.com/dmitrijs2005/notekeeper/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notekeeper/internal/common"
	"github.com/dmitrijs2005/notekeeper/internal/cryptox"
	"github.com/dmitrijs2005/notekeeper/internal/dbx"
	"github.com/dmitrijs2005/notekeeper/internal/logging"
	"github.com/golang-jwt/jwt/v5"
)

// tokenLeeway refreshes access tokens slightly before they expire.
const tokenLeeway = 30 * time.Second

// AuthProvider exposes the signed-in user to other services.
type AuthProvider interface {
	// User returns the cached user, or nil when nobody is signed in.
	User(ctx context.Context) (*models.User, error)

	// AccessToken returns a non-expired access token, refreshing it when
	// needed. Returns common.ErrAuthenticationRequired without a session.
	AccessToken(ctx context.Context) (string, error)
}

// KeyProvider exposes the master key derived at login.
type KeyProvider interface {
	MasterKey() []byte
}

type saltResponse struct {
	Salt []byte `json:"salt"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Salt     []byte `json:"salt,omitempty"`
	Verifier []byte `json:"verifier"`
}

type loginResponse struct {
	User models.User `json:"user"`
	models.Tokens
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AuthService handles online and offline login against the API and keeps
// the session (user, tokens, verifier) in the metadata table.
type AuthService struct {
	api client.API
	db  *sql.DB
	log logging.Logger
	now func() time.Time

	refreshMu sync.Mutex

	mu        sync.RWMutex
	masterKey []byte
}

func NewAuthService(api client.API, db *sql.DB, log logging.Logger) *AuthService {
	return &AuthService{api: api, db: db, log: log, now: time.Now}
}

func (a *AuthService) meta() metadata.Repository {
	return metadata.NewSQLiteRepository(a.db)
}

// Register creates a new account. The server only receives the salt and
// the verifier of the derived master key.
func (a *AuthService) Register(ctx context.Context, email string, password []byte) error {
	salt, err := cryptox.GenerateSalt()
	if err != nil {
		return err
	}
	key := cryptox.DeriveMasterKey(password, salt)
	defer common.WipeByteArray(key)

	req := credentialsRequest{Email: email, Salt: salt, Verifier: cryptox.MakeVerifier(key)}
	if err := a.api.Post(ctx, "/auth/register", req, "", nil); err != nil {
		return fmt.Errorf("register error: %w", err)
	}
	return nil
}

// Login authenticates against the server, caches user and tokens for
// offline use and keeps the derived master key in memory.
func (a *AuthService) Login(ctx context.Context, email string, password []byte) error {
	var sr saltResponse
	if err := a.api.Get(ctx, "/auth/salt?email="+url.QueryEscape(email), "", &sr); err != nil {
		return fmt.Errorf("get salt error: %w", err)
	}

	key := cryptox.DeriveMasterKey(password, sr.Salt)
	verifier := cryptox.MakeVerifier(key)

	var lr loginResponse
	req := credentialsRequest{Email: email, Verifier: verifier}
	if err := a.api.Post(ctx, "/auth/login", req, "", &lr); err != nil {
		return fmt.Errorf("login error: %w", err)
	}

	lr.User.Salt = sr.Salt
	if err := a.saveSession(ctx, &lr.User, &lr.Tokens, verifier); err != nil {
		return fmt.Errorf("offline data saving error: %w", err)
	}

	a.setMasterKey(key)
	a.log.Info(ctx, "logged in", "user", lr.User.ID)
	return nil
}

// OfflineLogin verifies the password against the locally cached verifier
// and unlocks the master key without contacting the server.
func (a *AuthService) OfflineLogin(ctx context.Context, email string, password []byte) error {
	user, err := a.User(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return client.ErrLocalDataNotAvailable
	}
	if user.Email != email {
		return client.ErrUnauthorized
	}

	savedVerifier, err := a.meta().Get(ctx, metadata.KeyVerifier)
	if err != nil {
		return err
	}
	if savedVerifier == nil {
		return client.ErrLocalDataNotAvailable
	}

	key := cryptox.DeriveMasterKey(password, user.Salt)
	if subtle.ConstantTimeCompare(savedVerifier, cryptox.MakeVerifier(key)) == 0 {
		return client.ErrUnauthorized
	}

	a.setMasterKey(key)
	return nil
}

func (a *AuthService) saveSession(ctx context.Context, user *models.User, tokens *models.Tokens, verifier []byte) error {
	return dbx.WithTx(ctx, a.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := metadata.NewSQLiteRepository(tx)
		if err := metadata.SetJSON(ctx, repo, metadata.KeyUser, user); err != nil {
			return err
		}
		if err := metadata.SetJSON(ctx, repo, metadata.KeyTokens, tokens); err != nil {
			return err
		}
		return repo.Set(ctx, metadata.KeyVerifier, verifier)
	})
}

// Logout forgets the session, cached credentials and the master key.
func (a *AuthService) Logout(ctx context.Context) error {
	a.setMasterKey(nil)
	repo := a.meta()
	for _, k := range []string{metadata.KeyUser, metadata.KeyTokens, metadata.KeyVerifier, metadata.KeyLastSynced, metadata.KeyMonographs} {
		if err := repo.Delete(ctx, k); err != nil {
			return err
		}
	}
	return nil
}

func (a *AuthService) User(ctx context.Context) (*models.User, error) {
	var u models.User
	ok, err := metadata.GetJSON(ctx, a.meta(), metadata.KeyUser, &u)
	if err != nil || !ok {
		return nil, err
	}
	return &u, nil
}

func (a *AuthService) AccessToken(ctx context.Context) (string, error) {
	a.refreshMu.Lock()
	defer a.refreshMu.Unlock()

	var t models.Tokens
	ok, err := metadata.GetJSON(ctx, a.meta(), metadata.KeyTokens, &t)
	if err != nil {
		return "", err
	}
	if !ok || t.AccessToken == "" {
		return "", common.ErrAuthenticationRequired
	}
	if !tokenExpired(t.AccessToken, a.now()) {
		return t.AccessToken, nil
	}
	if t.RefreshToken == "" {
		return "", common.ErrAuthenticationRequired
	}

	var fresh models.Tokens
	if err := a.api.Post(ctx, "/auth/refresh", refreshRequest{RefreshToken: t.RefreshToken}, "", &fresh); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			_ = a.meta().Delete(ctx, metadata.KeyTokens)
			return "", common.ErrAuthenticationRequired
		}
		return "", fmt.Errorf("refresh token: %w", err)
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = t.RefreshToken
	}
	if err := metadata.SetJSON(ctx, a.meta(), metadata.KeyTokens, fresh); err != nil {
		return "", err
	}
	a.log.Debug(ctx, "access token refreshed")
	return fresh.AccessToken, nil
}

// MasterKey returns a copy of the key unlocked at login, or nil.
func (a *AuthService) MasterKey() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.masterKey == nil {
		return nil
	}
	return append([]byte(nil), a.masterKey...)
}

func (a *AuthService) setMasterKey(key []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()
	common.WipeByteArray(a.masterKey)
	a.masterKey = key
}

// Ping proxies a liveness check to the API.
func (a *AuthService) Ping(ctx context.Context) error {
	return a.api.Ping(ctx)
}

// tokenExpired reads the exp claim without verifying the signature; the
// server remains the authority on validity.
func tokenExpired(token string, now time.Time) bool {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return true
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !claims.ExpiresAt.After(now.Add(tokenLeeway))
}
