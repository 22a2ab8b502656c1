// Package mail hands activation notices to the mail subsystem. Composing and
// delivering the actual message is done outside this service.
package mail

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/server/models"
)

// ActivationNotice is everything the mailer needs to write an activation
// message.
type ActivationNotice struct {
	Username      string    `json:"username"`
	ActivationKey string    `json:"activation_key"`
	ActivationURL string    `json:"activation_url"`
	IssuedAt      time.Time `json:"issued_at"`
}

// NewActivationNotice builds the notice for a, linking to baseURL followed by
// the escaped activation key.
func NewActivationNotice(a *models.Account, baseURL string, now time.Time) ActivationNotice {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return ActivationNotice{
		Username:      a.Username,
		ActivationKey: a.ActivationKey,
		ActivationURL: baseURL + url.PathEscape(a.ActivationKey),
		IssuedAt:      now.UTC(),
	}
}

// Sender delivers activation notices. Any returned error means the notice was
// not accepted and the caller may retry.
type Sender interface {
	SendActivationNotice(ctx context.Context, n ActivationNotice) error
}
