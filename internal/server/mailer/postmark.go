package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/mrz1836/postmark"
)

type postmarkAPI interface {
	SendEmail(ctx context.Context, email postmark.Email) (postmark.EmailResponse, error)
}

type PostmarkSender struct {
	client postmarkAPI
	from   string
}

func NewPostmarkSender(serverToken, accountToken, from string) (*PostmarkSender, error) {
	if serverToken == "" {
		return nil, fmt.Errorf("%w: postmark server token is required", common.ErrorInvalidArgument)
	}
	if from == "" {
		return nil, fmt.Errorf("%w: sender address is required", common.ErrorInvalidArgument)
	}
	return &PostmarkSender{client: postmark.NewClient(serverToken, accountToken), from: from}, nil
}

func (s *PostmarkSender) Send(ctx context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       msg.To,
		Subject:  msg.Subject,
		Tag:      msg.Tag,
		HTMLBody: msg.HTML,
		TextBody: msg.Text,
	})
	if err != nil {
		return fmt.Errorf("postmark send: %w", err)
	}
	if resp.ErrorCode > 0 {
		// 300 is an invalid request; retrying cannot fix it
		err := fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
		if resp.ErrorCode == 300 {
			return common.Permanent(errors.Join(common.ErrorInvalidArgument, err))
		}
		return err
	}
	return nil
}
