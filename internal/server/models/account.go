package models

import "time"

// Account is a registered user. Username and ActivationKey are unique;
// Enabled only ever moves from false to true.
type Account struct {
	ID                    string
	Username              string
	Password              []byte
	Salt                  []byte
	Role                  string
	Enabled               bool
	AccountNonExpired     bool
	CredentialsNonExpired bool
	AccountNonLocked      bool
	ActivationKey         string
	CreatedAt             time.Time
}

// NewPendingAccount returns an account in the state registration creates:
// disabled, with the three remaining flags set.
func NewPendingAccount(username string, password, salt []byte, role, activationKey string) *Account {
	return &Account{
		Username:              username,
		Password:              password,
		Salt:                  salt,
		Role:                  role,
		Enabled:               false,
		AccountNonExpired:     true,
		CredentialsNonExpired: true,
		AccountNonLocked:      true,
		ActivationKey:         activationKey,
	}
}
