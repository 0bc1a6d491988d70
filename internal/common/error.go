// Package common defines shared constants, sentinel errors and small helpers
// used across the Liberandum server. Callers should use errors.Is to match
// the error values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors.
	ErrorInternal           = errors.New("internal error")
	ErrorUnauthorized       = errors.New("unauthorized")
	ErrorForbidden          = errors.New("forbidden")
	ErrorInvalidArgument    = errors.New("invalid argument")
	ErrorServiceUnavailable = errors.New("service unavailable")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")

	// OTP errors. Wrong, expired and consumed codes all map here.
	ErrInvalidOTP = errors.New("invalid or expired otp")
)
