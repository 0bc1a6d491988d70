package otp

import (
	"context"
	"time"

	"github.com/dmitrijs2005/liberandum/internal/logging"
)

// Sweeper calls Engine.SweepExpired on a fixed interval.
type Sweeper struct {
	engine   *Engine
	interval time.Duration
	logger   logging.Logger
}

func NewSweeper(engine *Engine, interval time.Duration, logger logging.Logger) *Sweeper {
	return &Sweeper{engine: engine, interval: interval, logger: logger.With("module", "otp-sweeper")}
}

// Run blocks until ctx is done. Sweep failures are logged and retried on the
// next tick.
func (s *Sweeper) Run(ctx context.Context) error {
	s.logger.Info(ctx, "OTP sweeper started", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "OTP sweeper stopped")
			return nil
		case <-ticker.C:
			n, err := s.engine.SweepExpired(ctx)
			if err != nil {
				s.logger.Warn(ctx, "OTP sweep failed", "error", err)
				continue
			}
			if n > 0 {
				s.logger.Info(ctx, "Expired OTP codes removed", "count", n)
			}
		}
	}
}
