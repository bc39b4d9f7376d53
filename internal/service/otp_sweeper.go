package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/middleware"
)

// OTPSweeper periodically purges expired and consumed reset codes.
type OTPSweeper struct {
	tokens   *TokenService
	interval time.Duration
}

// NewOTPSweeper returns a sweeper running every interval.
func NewOTPSweeper(tokens *TokenService, interval time.Duration) *OTPSweeper {
	return &OTPSweeper{tokens: tokens, interval: interval}
}

// SweepOnce runs a single purge.
func (s *OTPSweeper) SweepOnce(ctx context.Context) (int64, error) {
	n, err := s.tokens.SweepExpiredOTP(ctx)
	if err != nil {
		middleware.Logger.ErrorContext(ctx, "otp sweep failed", slog.String("error", err.Error()))
		return 0, err
	}
	if n > 0 {
		middleware.Logger.InfoContext(ctx, "otp sweep removed tokens", slog.Int64("count", n))
	}
	return n, nil
}

// Run sweeps on every tick until ctx is done. A non-positive interval disables it.
func (s *OTPSweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = s.SweepOnce(ctx)
		}
	}
}
