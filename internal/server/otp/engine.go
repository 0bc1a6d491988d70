// Package otp generates, delivers, verifies and expires one-time codes.
//
// Per (email, type) a code goes none -> active -> consumed, or active ->
// expired. At most one active code exists per pair: Send replaces earlier
// codes under a per-pair lock and Verify consumes with a conditional write.
package otp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/dmitrijs2005/liberandum/internal/logging"
	"github.com/dmitrijs2005/liberandum/internal/server/keylock"
	"github.com/dmitrijs2005/liberandum/internal/server/mailer"
	"github.com/dmitrijs2005/liberandum/internal/server/models"
	otprepo "github.com/dmitrijs2005/liberandum/internal/server/repositories/otp"
	"github.com/google/uuid"
)

type Options struct {
	TTL      time.Duration
	Length   int
	Observer Observer
}

// Observer is notified of code deliveries, verifications and sweeps.
type Observer interface {
	CodeSent(typ models.OTPType, err error)
	CodeVerified(typ models.OTPType, ok bool)
	CodesSwept(n int)
}

type nopObserver struct{}

func (nopObserver) CodeSent(models.OTPType, error)    {}
func (nopObserver) CodeVerified(models.OTPType, bool) {}
func (nopObserver) CodesSwept(int)                    {}

type Engine struct {
	repo   otprepo.Repository
	sender mailer.Sender
	locker keylock.Locker
	logger logging.Logger
	obs    Observer
	ttl    time.Duration
	length int
	now    func() time.Time
}

func NewEngine(repo otprepo.Repository, sender mailer.Sender, locker keylock.Locker, logger logging.Logger, o Options) *Engine {
	if o.Length <= 0 {
		o.Length = 6
	}
	if o.TTL <= 0 {
		o.TTL = 10 * time.Minute
	}
	if o.Observer == nil {
		o.Observer = nopObserver{}
	}
	return &Engine{
		repo:   repo,
		sender: sender,
		locker: locker,
		logger: logger.With("module", "otp"),
		obs:    o.Observer,
		ttl:    o.TTL,
		length: o.Length,
		now:    time.Now,
	}
}

// TTL is the lifetime of a freshly sent code.
func (e *Engine) TTL() time.Duration {
	return e.ttl
}

func lockKey(email string, typ models.OTPType) string {
	return "otp:" + string(typ) + ":" + email
}

// Send replaces any code of (email, typ) with a new one and emails it.
// Failures are ErrorServiceUnavailable. When delivery fails the stored code
// stays valid until replaced or expired.
func (e *Engine) Send(ctx context.Context, email string, typ models.OTPType) error {
	err := e.send(ctx, email, typ)
	e.obs.CodeSent(typ, err)
	return err
}

func (e *Engine) send(ctx context.Context, email string, typ models.OTPType) error {
	unlock, err := e.locker.Lock(ctx, lockKey(email, typ))
	if err != nil {
		return errors.Join(common.ErrorServiceUnavailable, err)
	}
	defer unlock()

	if _, err := e.repo.DeleteByEmailAndType(ctx, email, typ); err != nil {
		return errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("delete previous codes: %w", err))
	}

	digits, err := common.RandomDigits(e.length)
	if err != nil {
		return fmt.Errorf("generate code: %w", err)
	}

	now := e.now()
	expires := now.Add(e.ttl)
	code := &models.OTP{
		ID:        uuid.NewString(),
		Email:     email,
		Code:      digits,
		Type:      typ,
		ExpiresAt: common.FormatTime(expires),
		CreatedAt: common.FormatTime(now),
		TTL:       expires.Unix(),
	}
	if err := e.repo.Create(ctx, code); err != nil {
		return errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("store code: %w", err))
	}

	msg, err := mailer.OTPMessage(email, digits, mailer.OTPPurpose(typ), e.ttl)
	if err != nil {
		return err
	}
	if err := e.sender.Send(ctx, msg); err != nil {
		e.logger.Error(ctx, "OTP delivery failed", "email", email, "type", typ, "error", err)
		return errors.Join(common.ErrorServiceUnavailable, fmt.Errorf("deliver code: %w", err))
	}

	e.logger.Info(ctx, "OTP sent", "email", email, "type", typ, "expires_at", code.ExpiresAt)
	return nil
}

// Verify consumes a matching active code. It reports false for a wrong,
// expired, consumed or unknown code alike; an error means the store could not
// be consulted.
func (e *Engine) Verify(ctx context.Context, email, code string, typ models.OTPType) (bool, error) {
	ok, err := e.verify(ctx, email, code, typ)
	if err == nil {
		e.obs.CodeVerified(typ, ok)
	}
	return ok, err
}

func (e *Engine) verify(ctx context.Context, email, code string, typ models.OTPType) (bool, error) {
	if email == "" || code == "" {
		return false, nil
	}
	now := common.FormatTime(e.now())

	rec, err := e.repo.FindActive(ctx, email, code, typ, now)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Join(common.ErrorServiceUnavailable, err)
	}

	err = e.repo.MarkUsed(ctx, rec.ID, now)
	if errors.Is(err, common.ErrorNotFound) {
		// consumed concurrently or expired in between
		return false, nil
	}
	if err != nil {
		return false, errors.Join(common.ErrorServiceUnavailable, err)
	}
	return true, nil
}

// SweepExpired deletes every expired code, used or not.
func (e *Engine) SweepExpired(ctx context.Context) (int, error) {
	n, err := e.repo.DeleteExpired(ctx, common.FormatTime(e.now()))
	e.obs.CodesSwept(n)
	if err != nil {
		return n, errors.Join(common.ErrorServiceUnavailable, err)
	}
	return n, nil
}

// CodeStatus describes one stored code without revealing it.
type CodeStatus struct {
	Type      models.OTPType `json:"otp_type"`
	Active    bool           `json:"active"`
	Used      bool           `json:"used"`
	ExpiresAt string         `json:"expires_at"`
	CreatedAt string         `json:"created_at"`
}

// Status lists the codes stored for email.
func (e *Engine) Status(ctx context.Context, email string) ([]CodeStatus, error) {
	codes, err := e.repo.ListByEmail(ctx, email)
	if err != nil {
		return nil, errors.Join(common.ErrorServiceUnavailable, err)
	}
	now := common.FormatTime(e.now())
	out := make([]CodeStatus, 0, len(codes))
	for _, c := range codes {
		out = append(out, CodeStatus{
			Type:      c.Type,
			Active:    c.ActiveAt(now),
			Used:      c.Used,
			ExpiresAt: c.ExpiresAt,
			CreatedAt: c.CreatedAt,
		})
	}
	return out, nil
}
