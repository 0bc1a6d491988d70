package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/go-mail/mail"
	"github.com/mrz1836/postmark"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flakySender struct {
	failures int
	calls    int
	err      error
}

func (f *flakySender) Send(context.Context, Message) error {
	f.calls++
	if f.calls <= f.failures {
		return f.err
	}
	return nil
}

var fastPolicy = common.RetryPolicy{Attempts: 3, Backoff: common.Backoff{InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}}

func validMessage() Message {
	return Message{To: "a@x.com", Subject: "hi", Text: "body"}
}

func TestMessage_Validate(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		ok   bool
	}{
		{"valid", validMessage(), true},
		{"bad recipient", Message{To: "nope", Subject: "s", Text: "b"}, false},
		{"no subject", Message{To: "a@x.com", Text: "b"}, false},
		{"no body", Message{To: "a@x.com", Subject: "s"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.msg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, common.ErrorInvalidArgument)
			}
		})
	}
}

func TestRetrying_RecoversFromTransientFailure(t *testing.T) {
	next := &flakySender{failures: 2, err: errors.New("connection reset")}
	r := NewRetrying(next, fastPolicy, logging.NewNop())

	require.NoError(t, r.Send(context.Background(), validMessage()))
	assert.Equal(t, 3, next.calls)
}

func TestRetrying_GivesUp(t *testing.T) {
	next := &flakySender{failures: 10, err: errors.New("down")}
	err := NewRetrying(next, fastPolicy, logging.NewNop()).Send(context.Background(), validMessage())
	assert.ErrorIs(t, err, common.ErrorServiceUnavailable)
	assert.Equal(t, 3, next.calls)
}

func TestRetrying_InvalidMessageIsNotRetried(t *testing.T) {
	next := &flakySender{failures: 10, err: common.ErrorInvalidArgument}
	err := NewRetrying(next, fastPolicy, logging.NewNop()).Send(context.Background(), validMessage())
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	assert.Equal(t, 1, next.calls)
}

type fakePostmark struct {
	got  postmark.Email
	resp postmark.EmailResponse
	err  error
}

func (f *fakePostmark) SendEmail(_ context.Context, e postmark.Email) (postmark.EmailResponse, error) {
	f.got = e
	return f.resp, f.err
}

func TestPostmarkSender(t *testing.T) {
	api := &fakePostmark{}
	s := &PostmarkSender{client: api, from: "noreply@liberandum.io"}

	msg := Message{To: "a@x.com", Subject: "code", HTML: "<b>1</b>", Text: "1", Tag: "otp-login"}
	require.NoError(t, s.Send(context.Background(), msg))
	assert.Equal(t, "noreply@liberandum.io", api.got.From)
	assert.Equal(t, "a@x.com", api.got.To)
	assert.Equal(t, "<b>1</b>", api.got.HTMLBody)
	assert.Equal(t, "otp-login", api.got.Tag)

	api.resp = postmark.EmailResponse{ErrorCode: 406, Message: "inactive recipient"}
	err := s.Send(context.Background(), msg)
	require.Error(t, err)
	assert.False(t, common.IsPermanent(err))

	api.resp = postmark.EmailResponse{ErrorCode: 300, Message: "invalid email request"}
	err = s.Send(context.Background(), msg)
	assert.True(t, common.IsPermanent(err))
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
}

func TestNewPostmarkSender_RequiresTokens(t *testing.T) {
	_, err := NewPostmarkSender("", "", "a@x.com")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	_, err = NewPostmarkSender("server", "", "")
	assert.ErrorIs(t, err, common.ErrorInvalidArgument)
	s, err := NewPostmarkSender("server", "account", "a@x.com")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSMTPSender_Message(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", 587, "noreply@liberandum.io", "u", "p", TLSModeStartTLS)
	m := s.message(Message{To: "a@x.com", Subject: "hello", HTML: "<p>x</p>", Text: "x"})

	assert.Equal(t, []string{"noreply@liberandum.io"}, m.GetHeader("From"))
	assert.Equal(t, []string{"a@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"hello"}, m.GetHeader("Subject"))

	var buf bytes.Buffer
	_, err := m.WriteTo(&buf)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "multipart/alternative")
}

func TestSMTPSender_DialerModes(t *testing.T) {
	ssl := NewSMTPSender("h", 465, "f@x.com", "", "", TLSModeSSL).dialer()
	assert.True(t, ssl.SSL)

	none := NewSMTPSender("h", 25, "f@x.com", "", "", TLSModeNone).dialer()
	assert.False(t, none.SSL)
	assert.Equal(t, mail.StartTLSPolicy(mail.NoStartTLS), none.StartTLSPolicy)

	starttls := NewSMTPSender("h", 587, "f@x.com", "", "", TLSModeStartTLS).dialer()
	assert.Equal(t, mail.MandatoryStartTLS, starttls.StartTLSPolicy)
	assert.Equal(t, 10*time.Second, starttls.Timeout)
}

func TestSMTPSender_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewSMTPSender("127.0.0.1", 1, "f@x.com", "", "", TLSModeNone).Send(ctx, validMessage())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := NewLogSender(logging.New(&buf, "json", "info"))
	require.NoError(t, s.Send(context.Background(), Message{To: "a@x.com", Subject: "code", Text: "123456"}))
	assert.Contains(t, buf.String(), "123456")
	assert.Contains(t, buf.String(), `"module":"mailer"`)
}

func TestOTPMessage(t *testing.T) {
	msg, err := OTPMessage("a@x.com", "123456", PurposeRegistration, 10*time.Minute)
	require.NoError(t, err)
	require.NoError(t, msg.Validate())

	assert.Contains(t, msg.Subject, "123456")
	assert.Contains(t, msg.HTML, "123456")
	assert.Contains(t, msg.HTML, "10 minutes")
	assert.True(t, strings.Contains(msg.Text, "Confirm your email"))
	assert.Equal(t, "otp-registration", msg.Tag)

	login, err := OTPMessage("a@x.com", "654321", PurposeLogin, 5*time.Minute)
	require.NoError(t, err)
	assert.Contains(t, login.Text, "sign in")
}
