package services

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophaccount/internal/common"
	"github.com/dmitrijs2005/gophaccount/internal/logging"
	"github.com/dmitrijs2005/gophaccount/internal/server/config"
	"github.com/dmitrijs2005/gophaccount/internal/server/mail"
)

// NotificationTrigger handles activation-notice tasks. The queue delivers at
// least once, so the same username may arrive more than once.
type NotificationTrigger struct {
	accounts          *AccountService
	sender            mail.Sender
	activationBaseURL string
	now               func() time.Time
	logger            logging.Logger
}

func NewNotificationTrigger(accounts *AccountService, sender mail.Sender, cfg *config.Config, l logging.Logger) *NotificationTrigger {
	return &NotificationTrigger{
		accounts:          accounts,
		sender:            sender,
		activationBaseURL: cfg.ActivationBaseURL,
		now:               time.Now,
		logger:            l.With("module", "notifications"),
	}
}

// TriggerActivationNotice asks the mail subsystem to send username its
// activation notice. An unknown username is logged and otherwise ignored. A
// sender failure is returned wrapped in common.ErrorDelivery; retrying is
// left to the queue.
func (t *NotificationTrigger) TriggerActivationNotice(ctx context.Context, username string) error {
	acc, found, err := t.accounts.Lookup(ctx, username)
	if err != nil {
		return err
	}
	if !found {
		t.logger.Warn(ctx, "activation notice for unknown account dropped", "username", username)
		return nil
	}

	notice := mail.NewActivationNotice(acc, t.activationBaseURL, t.now())
	if err := t.sender.SendActivationNotice(ctx, notice); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorDelivery, err)
	}

	t.logger.Info(ctx, "activation notice sent", "username", username)
	return nil
}
