package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredTokenPurger deletes revocation rows whose token has expired anyway.
type ExpiredTokenPurger interface {
	CleanupExpiredTokens(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges the revoked-token table. Suspended
// accounts are never touched here: timed blocks do not lapse on their own.
type CleanupManager struct {
	tokens   ExpiredTokenPurger
	logger   *slog.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(tokens ExpiredTokenPurger, logger *slog.Logger, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		tokens:   tokens,
		logger:   logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start runs one purge immediately and then one per interval until Stop is
// called or ctx is done. It blocks.
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, cm.timeout)
	defer cancel()

	rowsDeleted, err := cm.tokens.CleanupExpiredTokens(cleanupCtx)
	if err != nil {
		cm.logger.ErrorContext(ctx, "failed to cleanup expired tokens", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.InfoContext(ctx, "expired token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop. Safe to call more than once.
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
