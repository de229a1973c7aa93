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

	calls []string
	args  []string
	err   error
}

func (f *fakeExec) record(name, arg string) error {
	f.calls = append(f.calls, name)
	f.args = append(f.args, arg)
	return f.err
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error {
	return f.record("register", "")
}
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", "")
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", "")
}
func (f *fakeExec) List(context.Context) error                { return f.record("list", "") }
func (f *fakeExec) Show(_ context.Context, id string) error   { return f.record("show", id) }
func (f *fakeExec) Add(context.Context) error                 { return f.record("add", "") }
func (f *fakeExec) Edit(_ context.Context, id string) error   { return f.record("edit", id) }
func (f *fakeExec) Delete(_ context.Context, id string) error { return f.record("delete", id) }
func (f *fakeExec) Place(_ context.Context, q string) error   { return f.record("place", q) }

func capturePrintln(t *testing.T) *[]string {
	t.Helper()
	var out []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		out = append(out, strings.TrimSuffix(fmt.Sprintln(a...), "\n"))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &out
}

func lines(s ...string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(strings.Join(s, "\n") + "\n"))
}

func TestRunREPL_DispatchesCommands(t *testing.T) {
	capturePrintln(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "guest" }, lines(
		"register",
		"login",
		"",
		"l",
		"list",
		"show abc",
		"add",
		"edit abc",
		"delete abc",
		"rm xyz",
		"place jalan  siliwangi",
		"logout",
		"exit",
		"login",
	))

	assert.Equal(t, []string{
		"register", "login", "list", "list", "show", "add", "edit", "delete", "delete", "place", "logout",
	}, f.calls)
	assert.Equal(t, "abc", f.args[4])
	assert.Equal(t, "xyz", f.args[8])
	assert.Equal(t, "jalan siliwangi", f.args[9])
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	out := capturePrintln(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "" }, lines("help", "login", "help", "quit"))

	assert.Contains(t, *out, helpGuest)
	assert.Contains(t, *out, helpAuthed)
	assert.Equal(t, "Bye!", (*out)[len(*out)-1])
}

func TestRunREPL_PromptShowsStatus(t *testing.T) {
	out := capturePrintln(t)

	runREPL(context.Background(), &fakeExec{}, func() string { return "a@x.com" }, lines("exit"))

	assert.Equal(t, "contacts (a@x.com)> ", (*out)[0])
}

func TestRunREPL_UnknownCommandAndErrors(t *testing.T) {
	out := capturePrintln(t)
	f := &fakeExec{err: errors.New("please log in first")}

	runREPL(context.Background(), f, func() string { return "guest" }, lines("frobnicate", "list", "exit"))

	assert.Contains(t, *out, "Unknown command: frobnicate")
	assert.Contains(t, *out, "Error: please log in first")
}

func TestRunREPL_StopsOnEOF(t *testing.T) {
	capturePrintln(t)
	f := &fakeExec{}

	runREPL(context.Background(), f, func() string { return "" }, bufio.NewReader(strings.NewReader("list")))

	assert.Equal(t, []string{"list"}, f.calls)
}

func TestRunREPL_StopsWhenContextDone(t *testing.T) {
	capturePrintln(t)
	f := &fakeExec{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runREPL(ctx, f, func() string { return "" }, lines("list"))

	assert.Empty(t, f.calls)
}
