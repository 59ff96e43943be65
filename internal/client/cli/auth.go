package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/catalogkeeper/internal/common"
)

// getSimpleText, getMultiline and getPassword are indirections used to
// facilitate testing. They point to interactive input helpers and can be
// swapped in tests.
var (
	getSimpleText = GetSimpleText
	getMultiline  = GetMultiline
	getPassword   = GetPassword
)

// Register prompts for a username, email and password and creates a new
// account. New accounts always get the User role.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	if err := a.auth.Register(ctx, userName, string(password), email); err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Registration successful, you can log in now")
	return nil
}

// Login prompts for credentials and caches the issued token. The state
// subscriber announces the new identity.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	_, err = a.auth.Login(ctx, userName, string(password))
	return err
}

func (a *App) Logout(ctx context.Context) error {
	return a.auth.Logout(ctx)
}

// WhoAmI asks the server to verify the cached token.
func (a *App) WhoAmI(ctx context.Context) error {
	id, err := a.auth.Verify(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s (%s), token expires %s\n",
		id.Username, id.Role, time.Unix(id.Expiration, 0).Local().Format(time.DateTime))
	return nil
}
