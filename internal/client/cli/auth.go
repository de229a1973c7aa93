package cli

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/dmitrijs2005/contactbook/internal/client/validation"
)

// Indirections used to facilitate testing. They point to interactive input
// helpers and can be swapped in tests.
var (
	getSimpleText  = GetSimpleText
	getPassword    = GetPassword
	getWithDefault = GetWithDefault
	confirm        = Confirm
)

// formError reports every invalid field of a form.
type formError validation.Errors

func (e formError) Error() string {
	keys := slices.Sorted(maps.Keys(e))
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("  %s: %s", k, e[k]))
	}
	return "invalid input:\n" + strings.Join(lines, "\n")
}

// storeError prefers the message the store recorded for the failure.
func storeError(err error, recorded string) error {
	if recorded == "" || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.New(recorded)
}

// Register prompts for an email and password and creates the account.
func (a *App) Register(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	if errs := validation.ValidateRegister(email, password); !errs.Valid() {
		return formError(errs)
	}

	err = a.busy(func() bool { return a.auth.State().Loading }, func() error {
		_, err := a.auth.Register(ctx, strings.TrimSpace(email), password)
		return err
	})
	if err != nil {
		return storeError(err, a.auth.State().Error)
	}

	fmt.Fprintln(a.out, "Registered. You can log in now.")
	return nil
}

// Login prompts for credentials and opens a session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}

	if errs := validation.ValidateLogin(email, password); !errs.Valid() {
		return formError(errs)
	}

	err = a.busy(func() bool { return a.auth.State().Loading }, func() error {
		_, err := a.auth.Login(ctx, strings.TrimSpace(email), password)
		return err
	})
	if err != nil {
		return storeError(err, a.auth.State().Error)
	}

	sess, _ := a.auth.Session()
	fmt.Fprintf(a.out, "Logged in as %s\n", sess.Email)
	return nil
}

// Logout ends the session right away.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		return errNotLoggedIn
	}
	a.auth.Logout(ctx)
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
