package mailer

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
)

// Retrying retries transient delivery failures of the wrapped sender with
// bounded backoff. Invalid messages fail immediately.
type Retrying struct {
	next   Sender
	policy common.RetryPolicy
	logger logging.Logger
}

func NewRetrying(next Sender, policy common.RetryPolicy, logger logging.Logger) *Retrying {
	return &Retrying{next: next, policy: policy, logger: logger.With("module", "mailer")}
}

func (r *Retrying) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	attempt := 0
	return common.Retry(ctx, r.policy, func(ctx context.Context) error {
		attempt++
		err := r.next.Send(ctx, msg)
		if err != nil && errors.Is(err, common.ErrorInvalidArgument) {
			return common.Permanent(err)
		}
		if err != nil {
			r.logger.Warn(ctx, "Email delivery failed", "to", msg.To, "attempt", attempt, "error", err)
		}
		return err
	})
}
