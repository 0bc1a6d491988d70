package mailer

import (
	"context"

	"github.com/dmitrijs2005/liberandum/internal/logging"
)

// LogSender writes messages to the log instead of delivering them. It is the
// development mail provider; codes end up in the log.
type LogSender struct {
	logger logging.Logger
}

func NewLogSender(logger logging.Logger) *LogSender {
	return &LogSender{logger: logger.With("module", "mailer")}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.logger.Info(ctx, "Email", "to", msg.To, "subject", msg.Subject, "tag", msg.Tag, "text", msg.Text)
	return nil
}
