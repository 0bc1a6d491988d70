package models

import (
	"fmt"

	"github.com/dmitrijs2005/liberandum/internal/common"
)

// OTPType separates registration codes from login codes.
type OTPType string

const (
	OTPRegistration OTPType = "registration"
	OTPLogin        OTPType = "login"
)

func ParseOTPType(s string) (OTPType, error) {
	switch OTPType(s) {
	case OTPRegistration, OTPLogin:
		return OTPType(s), nil
	}
	return "", fmt.Errorf("%w: otp type %q", common.ErrorInvalidArgument, s)
}

// OTP is a one-time code. TTL is the expiry in unix seconds, used by the
// DynamoDB time-to-live sweeper as a backstop to SweepExpired.
type OTP struct {
	ID        string  `dynamodbav:"id" json:"id"`
	Email     string  `dynamodbav:"email" json:"email"`
	Code      string  `dynamodbav:"otp_code" json:"-"`
	Type      OTPType `dynamodbav:"otp_type" json:"otp_type"`
	ExpiresAt string  `dynamodbav:"expires_at" json:"expires_at"`
	Used      bool    `dynamodbav:"used" json:"used"`
	UsedAt    string  `dynamodbav:"used_at,omitempty" json:"used_at,omitempty"`
	CreatedAt string  `dynamodbav:"created_at" json:"created_at"`
	TTL       int64   `dynamodbav:"ttl" json:"-"`
}

// ActiveAt reports whether the code is unused and not yet expired at now
// (both in common.TimeLayout).
func (o *OTP) ActiveAt(now string) bool {
	return !o.Used && o.ExpiresAt > now
}
