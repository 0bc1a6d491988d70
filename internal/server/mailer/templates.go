package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #222;">
  <h2>{{.Title}}</h2>
  <p>{{.Intro}}</p>
  <p style="font-size: 28px; font-weight: bold; letter-spacing: 6px;">{{.Code}}</p>
  <p>The code expires in {{.Minutes}} minutes. If you did not request it, ignore this email.</p>
</body>
</html>`))

type otpView struct {
	Title   string
	Intro   string
	Code    string
	Minutes int
}

// OTPPurpose selects the wording of a code email.
type OTPPurpose string

const (
	PurposeRegistration OTPPurpose = "registration"
	PurposeLogin        OTPPurpose = "login"
)

// OTPMessage renders the email carrying a one-time code.
func OTPMessage(to, code string, purpose OTPPurpose, ttl time.Duration) (Message, error) {
	v := otpView{Code: code, Minutes: int(ttl.Minutes())}
	switch purpose {
	case PurposeRegistration:
		v.Title = "Confirm your email"
		v.Intro = "Use this code to finish creating your Liberandum account:"
	default:
		v.Title = "Your sign-in code"
		v.Intro = "Use this code to sign in to Liberandum:"
	}

	var buf bytes.Buffer
	if err := otpHTML.Execute(&buf, v); err != nil {
		return Message{}, fmt.Errorf("render otp email: %w", err)
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Liberandum %s code: %s", purpose, code),
		HTML:    buf.String(),
		Text:    fmt.Sprintf("%s\n\n%s %s\n\nThe code expires in %d minutes.", v.Title, v.Intro, code, v.Minutes),
		Tag:     "otp-" + string(purpose),
	}, nil
}
