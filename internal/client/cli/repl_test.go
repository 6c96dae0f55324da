package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool
	resetOK  bool
	failWith error

	calls  []string
	args   map[string][]string
	failed []string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, name)
	if f.args == nil {
		f.args = map[string][]string{}
	}
	f.args[name] = args
	return f.failWith
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) fail(_ context.Context, op string, _ error) {
	f.failed = append(f.failed, op)
}

func (f *fakeExec) Register(context.Context) error { return f.record("register", nil) }
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) New(_ context.Context, a []string) error       { return f.record("new", a) }
func (f *fakeExec) List(_ context.Context, a []string) error      { return f.record("list", a) }
func (f *fakeExec) Write(_ context.Context, a []string) error     { return f.record("write", a) }
func (f *fakeExec) Show(_ context.Context, a []string) error      { return f.record("show", a) }
func (f *fakeExec) Remove(_ context.Context, a []string) error    { return f.record("rm", a) }
func (f *fakeExec) History(_ context.Context, a []string) error   { return f.record("history", a) }
func (f *fakeExec) Publish(_ context.Context, a []string) error   { return f.record("publish", a) }
func (f *fakeExec) Unpublish(_ context.Context, a []string) error { return f.record("unpublish", a) }
func (f *fakeExec) Published(_ context.Context, a []string) error { return f.record("published", a) }
func (f *fakeExec) Sync(_ context.Context, a []string) error      { return f.record("sync", a) }
func (f *fakeExec) Conflicts(_ context.Context, a []string) error { return f.record("conflicts", a) }
func (f *fakeExec) Resolve(_ context.Context, a []string) error   { return f.record("resolve", a) }
func (f *fakeExec) Lock(_ context.Context, a []string) error      { return f.record("lock", a) }
func (f *fakeExec) Unlock(_ context.Context, a []string) error    { return f.record("unlock", a) }
func (f *fakeExec) Reset(_ context.Context, a []string) (bool, error) {
	_ = f.record("reset", a)
	return f.resetOK, nil
}

func silence(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		lines = append(lines, strings.TrimSpace(fmt.Sprintln(a...)))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func script(lines ...string) *bufio.Scanner {
	return bufio.NewScanner(strings.NewReader(strings.Join(lines, "\n")))
}

func TestRunREPL_DispatchesWithArgs(t *testing.T) {
	silence(t)
	exec := &fakeExec{}

	runREPL(context.Background(), exec, func() string { return "" }, script(
		"help",
		"login",
		"new Shopping list",
		"write n1",
		"show n1",
		"publish n1 --password",
		"sync fetch --force",
		"resolve c1 remote",
		"l",
		"exit",
		"show never-reached",
	))

	assert.Equal(t, []string{"login", "new", "write", "show", "publish", "sync", "resolve", "list"}, exec.calls)
	assert.Equal(t, []string{"Shopping", "list"}, exec.args["new"])
	assert.Equal(t, []string{"n1", "--password"}, exec.args["publish"])
	assert.Equal(t, []string{"fetch", "--force"}, exec.args["sync"])
}

func TestRunREPL_RequiresLogin(t *testing.T) {
	lines := silence(t)
	exec := &fakeExec{}

	runREPL(context.Background(), exec, func() string { return "" }, script("list", "write n1", "quit"))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Please log in first")
}

func TestRunREPL_UnknownCommand(t *testing.T) {
	lines := silence(t)
	exec := &fakeExec{loggedIn: true}

	runREPL(context.Background(), exec, func() string { return "" }, script("foobar"))

	assert.Empty(t, exec.calls)
	assert.Contains(t, *lines, "Unknown command: foobar")
}

func TestRunREPL_ErrorsAreReportedAndLoopContinues(t *testing.T) {
	silence(t)
	exec := &fakeExec{loggedIn: true, failWith: errors.New("boom")}

	runREPL(context.Background(), exec, func() string { return "" }, script("show x", "rm x"))

	assert.Equal(t, []string{"show", "rm"}, exec.calls)
	assert.Equal(t, []string{"show", "rm"}, exec.failed)
}

func TestRunREPL_ConfirmedResetExits(t *testing.T) {
	silence(t)
	exec := &fakeExec{resetOK: true}

	runREPL(context.Background(), exec, func() string { return "" }, script("reset", "login"))

	assert.Equal(t, []string{"reset"}, exec.calls)
}
