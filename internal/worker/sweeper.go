package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/account-service/internal/repository"
)

// Sweeper purges expired token records and staged registrations on a fixed
// interval. A swept record is unreadable afterwards; reads already filter
// on expiry, so the sweep only reclaims storage.
type Sweeper struct {
	tokens   repository.TokenRepository
	pendings repository.PendingRepository
	interval time.Duration
	logger   *zap.Logger
}

// NewSweeper builds the worker.
func NewSweeper(tokens repository.TokenRepository, pendings repository.PendingRepository, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{tokens: tokens, pendings: pendings, interval: interval, logger: logger}
}

// Run loops until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	tokens, err := s.tokens.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("token sweep failed", zap.Error(err))
	}
	pendings, err := s.pendings.PurgeExpired(ctx)
	if err != nil {
		s.logger.Warn("pending registration sweep failed", zap.Error(err))
	}
	if tokens > 0 || pendings > 0 {
		s.logger.Info("expiry sweep",
			zap.Int64("tokens_purged", tokens),
			zap.Int64("pending_purged", pendings))
	}
}
