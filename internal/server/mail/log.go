package mail

import (
	"context"

	"github.com/dmitrijs2005/gophaccount/internal/logging"
)

// LogSender writes notices to the log instead of sending them. Meant for
// development, where the activation link is copied from the output.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(l logging.Logger) *LogSender {
	return &LogSender{logger: l.With("module", "mail")}
}

func (s *LogSender) SendActivationNotice(ctx context.Context, n ActivationNotice) error {
	s.logger.Info(ctx, "activation notice", "username", n.Username, "url", n.ActivationURL)
	return nil
}
