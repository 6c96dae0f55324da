package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
type execIface interface {
	isLoggedIn() bool
	fail(ctx context.Context, op string, err error)

	Register(ctx context.Context) error
	Login(ctx context.Context) error
	Logout(ctx context.Context) error

	New(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Write(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Remove(ctx context.Context, args []string) error
	History(ctx context.Context, args []string) error

	Publish(ctx context.Context, args []string) error
	Unpublish(ctx context.Context, args []string) error
	Published(ctx context.Context, args []string) error

	Sync(ctx context.Context, args []string) error
	Conflicts(ctx context.Context, args []string) error
	Resolve(ctx context.Context, args []string) error
	Lock(ctx context.Context, args []string) error
	Unlock(ctx context.Context, args []string) error
	Reset(ctx context.Context, args []string) (bool, error)
}

const (
	helpLoggedOut = "Available commands: register, login, reset, exit"
	helpLoggedIn  = "Available commands: new, (l)ist, write, show, rm, history, publish, unpublish, published, " +
		"sync, conflicts, resolve, lock, unlock, logout, reset, exit"
)

// runREPL reads commands line by line and dispatches them to a. It returns
// on EOF, on "exit" or "quit", and after a confirmed reset.
//
// Commands that need a session are refused until the user logs in. Errors
// are reported through a.fail and never stop the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		printlnFn(fmt.Sprintf("nk %s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var err error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpLoggedIn)
			} else {
				printlnFn(helpLoggedOut)
			}
			continue

		case "exit", "quit":
			printlnFn("Bye!")
			return

		case "register":
			err = a.Register(ctx)

		case "login":
			err = a.Login(ctx)

		case "reset":
			var done bool
			if done, err = a.Reset(ctx, args); done {
				return
			}

		default:
			handler, ok := sessionCommand(a, cmd)
			if !ok {
				printlnFn("Unknown command:", cmd)
				continue
			}
			if !a.isLoggedIn() {
				printlnFn("Please log in first")
				continue
			}
			err = handler(ctx, args)
		}

		if err != nil {
			a.fail(ctx, cmd, err)
		}
	}
}

func sessionCommand(a execIface, cmd string) (func(context.Context, []string) error, bool) {
	switch cmd {
	case "logout":
		return func(ctx context.Context, _ []string) error { return a.Logout(ctx) }, true
	case "new":
		return a.New, true
	case "l", "list":
		return a.List, true
	case "write":
		return a.Write, true
	case "show":
		return a.Show, true
	case "rm":
		return a.Remove, true
	case "history":
		return a.History, true
	case "publish":
		return a.Publish, true
	case "unpublish":
		return a.Unpublish, true
	case "published":
		return a.Published, true
	case "sync":
		return a.Sync, true
	case "conflicts":
		return a.Conflicts, true
	case "resolve":
		return a.Resolve, true
	case "lock":
		return a.Lock, true
	case "unlock":
		return a.Unlock, true
	}
	return nil, false
}
