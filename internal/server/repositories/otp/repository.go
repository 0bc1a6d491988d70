// Package otp persists one-time codes.
package otp

import (
	"context"

	"github.com/dmitrijs2005/liberandum/internal/server/models"
)

// Repository stores OTP records. Times are strings in common.TimeLayout.
type Repository interface {
	Create(ctx context.Context, code *models.OTP) error
	// DeleteByEmailAndType removes every code of the pair, used or not.
	DeleteByEmailAndType(ctx context.Context, email string, typ models.OTPType) (int, error)
	// FindActive returns an unused, unexpired code matching all arguments or
	// common.ErrorNotFound.
	FindActive(ctx context.Context, email, code string, typ models.OTPType, now string) (*models.OTP, error)
	// MarkUsed consumes the code only if it is still active at now; otherwise
	// it returns common.ErrorNotFound.
	MarkUsed(ctx context.Context, id, now string) error
	DeleteExpired(ctx context.Context, now string) (int, error)
	ListByEmail(ctx context.Context, email string) ([]*models.OTP, error)
}
