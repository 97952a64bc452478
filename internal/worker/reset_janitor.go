package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/marketplace-service/internal/repository"
)

// ResetJanitor periodically deletes password reset tokens that can no
// longer be redeemed.
type ResetJanitor struct {
	resets   repository.PasswordResetRepository
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewResetJanitor builds a janitor sweeping every interval.
func NewResetJanitor(resets repository.PasswordResetRepository, interval time.Duration, logger *zap.Logger) *ResetJanitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &ResetJanitor{resets: resets, interval: interval, logger: logger, now: time.Now}
}

// Run sweeps until ctx is cancelled.
func (j *ResetJanitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := j.Sweep(ctx); err != nil {
				j.logger.Warn("reset token sweep failed", zap.Error(err))
			}
		}
	}
}

// Sweep deletes expired and used tokens once and reports how many went.
func (j *ResetJanitor) Sweep(ctx context.Context) (int64, error) {
	n, err := j.resets.DeleteExpired(ctx, j.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		j.logger.Info("reset tokens swept", zap.Int64("deleted", n))
	}
	return n, nil
}
