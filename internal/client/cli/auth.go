package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notekeeper/internal/client/client"
	"github.com/dmitrijs2005/notekeeper/internal/client/syncer"
	"github.com/dmitrijs2005/notekeeper/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

func (a *App) readCredentials() (string, []byte, error) {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return "", nil, err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return "", nil, err
	}
	return email, password, nil
}

// Register prompts for an email and password and creates an account.
func (a *App) Register(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, email, password); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Success! Confirm your email, then log in.")
	return nil
}

// Login prompts for credentials and authenticates online, falling back to
// the locally cached verifier when the server is unreachable.
func (a *App) Login(ctx context.Context) error {
	email, password, err := a.readCredentials()
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	mode := ModeOnline
	err = a.auth.Login(ctx, email, password)
	if errors.Is(err, client.ErrUnavailable) {
		a.log.Info(ctx, "server unavailable, trying offline login")
		mode = ModeOffline
		err = a.auth.OfflineLogin(ctx, email, password)
	}
	if err != nil {
		if mode == ModeOffline {
			a.setMode(ModeDisabled)
		}
		return err
	}

	a.mu.Lock()
	a.userName = email
	a.mu.Unlock()
	a.setMode(mode)

	if err := a.monographs.Load(ctx); err != nil {
		a.log.Warn(ctx, "failed to load published notes", "error", err)
	}
	fmt.Fprintln(a.out, "Login successful")

	if mode == ModeOnline {
		a.requestSync(ctx, syncer.TypeFull)
	}
	return nil
}

// Logout forgets the session and the cached credentials.
func (a *App) Logout(ctx context.Context) error {
	if err := a.auth.Logout(ctx); err != nil {
		return err
	}
	a.mu.Lock()
	a.userName = ""
	a.mu.Unlock()
	fmt.Fprintln(a.out, "Logged out")
	return nil
}
