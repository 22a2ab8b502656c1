package services

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/cryptox"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
)

// AuthenticationRecord is what the authentication layer needs to know about
// a principal. It is assembled per call and never stored.
type AuthenticationRecord struct {
	Username              string
	Password              []byte
	Salt                  []byte
	Enabled               bool
	AccountNonExpired     bool
	CredentialsNonExpired bool
	AccountNonLocked      bool
	Authorities           []string
}

// HasAuthority reports whether name was granted.
func (r *AuthenticationRecord) HasAuthority(name string) bool {
	return slices.Contains(r.Authorities, name)
}

// Authenticator checks credentials against stored accounts.
type Authenticator struct {
	accounts *AccountService
	logger   logging.Logger
}

func NewAuthenticator(accounts *AccountService, l logging.Logger) *Authenticator {
	return &Authenticator{accounts: accounts, logger: l.With("module", "auth")}
}

// LoadAuthenticationRecord builds the record for username. An unknown
// username yields common.ErrorPrincipalNotFound. No password is checked here.
func (a *Authenticator) LoadAuthenticationRecord(ctx context.Context, username string) (*AuthenticationRecord, error) {
	acc, found, err := a.accounts.Lookup(ctx, username)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, common.ErrorPrincipalNotFound
	}

	return &AuthenticationRecord{
		Username:              acc.Username,
		Password:              acc.Password,
		Salt:                  acc.Salt,
		Enabled:               acc.Enabled,
		AccountNonExpired:     acc.AccountNonExpired,
		CredentialsNonExpired: acc.CredentialsNonExpired,
		AccountNonLocked:      acc.AccountNonLocked,
		Authorities:           []string{acc.Role},
	}, nil
}

// Authenticate verifies password for username and checks the account state
// flags. Every rejection is common.ErrorUnauthorized; the wrapped reason is
// meant for logs, not for clients.
func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*AuthenticationRecord, error) {
	rec, err := a.LoadAuthenticationRecord(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorPrincipalNotFound) {
			// burn the same hashing time as a real check
			cryptox.HashPassword([]byte(password), cryptox.NewSalt())
			return nil, fmt.Errorf("%w: %w", common.ErrorUnauthorized, err)
		}
		return nil, err
	}

	if !cryptox.VerifyPassword(rec.Password, rec.Salt, []byte(password)) {
		return nil, fmt.Errorf("%w: bad credentials", common.ErrorUnauthorized)
	}

	switch {
	case !rec.Enabled:
		return nil, fmt.Errorf("%w: account disabled", common.ErrorUnauthorized)
	case !rec.AccountNonLocked:
		return nil, fmt.Errorf("%w: account locked", common.ErrorUnauthorized)
	case !rec.AccountNonExpired:
		return nil, fmt.Errorf("%w: account expired", common.ErrorUnauthorized)
	case !rec.CredentialsNonExpired:
		return nil, fmt.Errorf("%w: credentials expired", common.ErrorUnauthorized)
	}

	a.logger.Debug(ctx, "authenticated", "username", rec.Username)
	return rec, nil
}
