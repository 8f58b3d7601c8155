package main

import (
	"context"
	"log/slog"
	"time"
)

type expirySweeper interface {
	SweepExpired(ctx context.Context, now time.Time) (int, error)
}

// runExpirySweeper rejects overdue pending requests every interval until ctx
// is done. A non-positive interval disables it; inbox reads still reconcile.
func runExpirySweeper(ctx context.Context, log *slog.Logger, s expirySweeper, interval time.Duration, now func() time.Time) {
	log = log.With(slog.String("component", "expiry.sweeper"))
	if interval <= 0 {
		log.Info("expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpired(ctx, now())
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("expiry sweep failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				log.Info("expired appointments rejected", slog.Int("count", n))
			}
		}
	}
}
