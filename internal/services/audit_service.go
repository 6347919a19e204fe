package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/showroom/internal/models"
)

// SuspensionAuditRepository is the append-only store of suspension transitions.
type SuspensionAuditRepository interface {
	Append(ctx context.Context, entry *models.SuspensionAuditEntry) (*models.SuspensionAuditEntry, error)
	ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error)
}

// AuditService records suspension transitions with a dual write: an slog line
// that is always emitted and a database row.
type AuditService struct {
	repo   SuspensionAuditRepository
	logger *slog.Logger
}

func NewAuditService(repo SuspensionAuditRepository, logger *slog.Logger) *AuditService {
	return &AuditService{
		repo:   repo,
		logger: logger,
	}
}

// RecordSuspension logs and persists entry. A persistence failure is logged at
// error level and swallowed; the account change it describes has already been
// committed.
func (s *AuditService) RecordSuspension(ctx context.Context, entry *models.SuspensionAuditEntry) {
	attrs := []any{
		slog.String("action", string(entry.Action)),
		slog.String("user_id", entry.UserID),
		slog.String("actor_id", entry.ActorID),
		slog.Any("previous_blocked_until", entry.PreviousBlockedUntil),
		slog.Any("new_blocked_until", entry.NewBlockedUntil),
	}
	if entry.Reason != nil {
		attrs = append(attrs, slog.String("reason", *entry.Reason))
	}
	s.logger.InfoContext(ctx, "account suspension transition", attrs...)

	if _, err := s.repo.Append(ctx, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist suspension audit entry",
			slog.String("action", string(entry.Action)),
			slog.String("user_id", entry.UserID),
			slog.Any("error", err),
		)
	}
}

// History returns the suspension entries of an account, newest first.
func (s *AuditService) History(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	entries, err := s.repo.ListByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list suspension history: %w", err)
	}
	return entries, nil
}
