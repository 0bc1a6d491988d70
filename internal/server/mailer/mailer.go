// Package mailer delivers transactional email: SMTP, Postmark or the log in
// development.
package mailer

import (
	"context"
	"fmt"
	"net/mail"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

// Message is a single outgoing email. At least one of HTML and Text is set.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
	Tag     string
}

func (m Message) Validate() error {
	if _, err := mail.ParseAddress(m.To); err != nil {
		return fmt.Errorf("%w: recipient %q", common.ErrorInvalidArgument, m.To)
	}
	if m.Subject == "" {
		return fmt.Errorf("%w: empty subject", common.ErrorInvalidArgument)
	}
	if m.HTML == "" && m.Text == "" {
		return fmt.Errorf("%w: empty body", common.ErrorInvalidArgument)
	}
	return nil
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}
