package service

import (
	"context"
	"log/slog"
	"time"
)

// Sweeper periodically runs SweepExpired so expiry and stale-reservation
// handling never depend on caller traffic.
type Sweeper struct {
	ledger   *Service
	interval time.Duration
	logger   *slog.Logger
}

func NewSweeper(ledger *Service, interval time.Duration, logger *slog.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{ledger: ledger, interval: interval, logger: logger}
}

func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			expired, released, err := s.ledger.SweepExpired(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "inventory sweep failed", "error", err.Error())
				continue
			}
			if expired > 0 || released > 0 {
				s.logger.InfoContext(ctx, "inventory sweep completed",
					"expired", expired,
					"released", released,
				)
			}
		}
	}
}
