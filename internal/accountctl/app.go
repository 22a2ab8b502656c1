// Package accountctl implements the operator command line: registering,
// activating and inspecting accounts directly against the store.
package accountctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/server/models"
	"github.com/dmitrijs2005/gophaccount/internal/server/services"
)

// ValueFlags lists the flags that consume the next argument, so the
// subcommand can be told apart from flag values.
var ValueFlags = []string{"-c", "-config", "-a", "-d", "-s", "-q", "-t", "-b", "-m", "-r", "-l", "-n", "-i"}

// ErrUsage is returned for unknown subcommands or missing arguments.
var ErrUsage = errors.New("usage error")

type Accounts interface {
	Register(ctx context.Context, username string, data services.RegistrationData) (*models.Account, error)
	Lookup(ctx context.Context, username string) (*models.Account, bool, error)
	Activate(ctx context.Context, key string) (bool, error)
}

type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (*services.AuthenticationRecord, error)
}

// PendingFunc reports how many activation notices await delivery.
type PendingFunc func(ctx context.Context) (int, error)

type App struct {
	accounts Accounts
	auth     Authenticator
	pending  PendingFunc
	out      io.Writer
}

func NewApp(accounts Accounts, auth Authenticator, pending PendingFunc, out io.Writer) *App {
	return &App{accounts: accounts, auth: auth, pending: pending, out: out}
}

const usage = `Usage: accountctl [flags] <command> [args]

Commands:
  register <username> [role]   create a pending account (password is prompted)
  activate <key>               enable the account holding an activation key
  show <username>              print an account
  check <username>             verify a password (prompted) and print authorities
  pending                      number of activation notices awaiting delivery
`

// Run executes the subcommand in args (already stripped of flags).
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(a.out, usage)
		return ErrUsage
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "register":
		if len(rest) < 1 || len(rest) > 2 {
			return a.usageError("register <username> [role]")
		}
		role := ""
		if len(rest) == 2 {
			role = rest[1]
		}
		return a.register(ctx, rest[0], role)
	case "activate":
		if len(rest) != 1 {
			return a.usageError("activate <key>")
		}
		return a.activate(ctx, rest[0])
	case "show":
		if len(rest) != 1 {
			return a.usageError("show <username>")
		}
		return a.show(ctx, rest[0])
	case "check":
		if len(rest) != 1 {
			return a.usageError("check <username>")
		}
		return a.check(ctx, rest[0])
	case "pending":
		return a.showPending(ctx)
	case "help":
		fmt.Fprint(a.out, usage)
		return nil
	default:
		fmt.Fprintf(a.out, "Unknown command: %s\n\n%s", cmd, usage)
		return ErrUsage
	}
}

func (a *App) usageError(form string) error {
	fmt.Fprintf(a.out, "Usage: accountctl %s\n", form)
	return ErrUsage
}

func (a *App) register(ctx context.Context, username, role string) error {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	confirm, err := GetPassword(a.out, "Repeat password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(confirm)

	if !bytes.Equal(pw, confirm) {
		return errors.New("passwords do not match")
	}

	acc, err := a.accounts.Register(ctx, username, services.RegistrationData{Password: string(pw), Role: role})
	if err != nil {
		if errors.Is(err, common.ErrorDuplicateUser) {
			return fmt.Errorf("username %q is already taken", username)
		}
		return err
	}

	fmt.Fprintf(a.out, "Registered %s (id %s), activation key %s\n", acc.Username, acc.ID, acc.ActivationKey)
	return nil
}

func (a *App) activate(ctx context.Context, key string) error {
	ok, err := a.accounts.Activate(ctx, key)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("activation failed")
	}
	fmt.Fprintln(a.out, "Account activated")
	return nil
}

func (a *App) show(ctx context.Context, username string) error {
	acc, found, err := a.accounts.Lookup(ctx, username)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("account %q not found", username)
	}

	fmt.Fprintf(a.out, "ID:                      %s\n", acc.ID)
	fmt.Fprintf(a.out, "Username:                %s\n", acc.Username)
	fmt.Fprintf(a.out, "Role:                    %s\n", acc.Role)
	fmt.Fprintf(a.out, "Enabled:                 %t\n", acc.Enabled)
	fmt.Fprintf(a.out, "Account non-expired:     %t\n", acc.AccountNonExpired)
	fmt.Fprintf(a.out, "Credentials non-expired: %t\n", acc.CredentialsNonExpired)
	fmt.Fprintf(a.out, "Account non-locked:      %t\n", acc.AccountNonLocked)
	fmt.Fprintf(a.out, "Created:                 %s\n", acc.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}

func (a *App) check(ctx context.Context, username string) error {
	pw, err := GetPassword(a.out, "Enter password: ")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(pw)

	rec, err := a.auth.Authenticate(ctx, username, string(pw))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "OK %s [%s]\n", rec.Username, strings.Join(rec.Authorities, ", "))
	return nil
}

func (a *App) showPending(ctx context.Context) error {
	n, err := a.pending(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d activation notice(s) pending\n", n)
	return nil
}
