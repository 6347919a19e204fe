package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditService_RecordSuspension_LogsAndPersists(t *testing.T) {
	var buf bytes.Buffer
	repo := &MockSuspensionAuditRepository{}
	svc := NewAuditService(repo, slog.New(slog.NewJSONHandler(&buf, nil)))

	svc.RecordSuspension(context.Background(), &models.SuspensionAuditEntry{
		UserID:  "user-1",
		ActorID: "admin-1",
		Action:  models.SuspensionActionBlock,
		Reason:  strPtr("fraud"),
	})
	require.Len(t, repo.Appended, 1)
	assert.Contains(t, buf.String(), `"action":"block"`)
	assert.Contains(t, buf.String(), `"reason":"fraud"`)
}

func TestAuditService_RecordSuspension_PersistFailureSwallowed(t *testing.T) {
	var buf bytes.Buffer
	repo := &MockSuspensionAuditRepository{
		AppendFunc: func(ctx context.Context, entry *models.SuspensionAuditEntry) (*models.SuspensionAuditEntry, error) {
			return nil, errors.New("insert failed")
		},
	}
	svc := NewAuditService(repo, slog.New(slog.NewJSONHandler(&buf, nil)))

	svc.RecordSuspension(context.Background(), &models.SuspensionAuditEntry{UserID: "user-1", Action: models.SuspensionActionUnblock})
	assert.Len(t, repo.Appended, 0)
	assert.Contains(t, buf.String(), "failed to persist suspension audit entry")
	assert.Contains(t, buf.String(), `"level":"ERROR"`)
}

func TestAuditService_History_ClampsPage(t *testing.T) {
	repo := &MockSuspensionAuditRepository{
		ListByUserIDFunc: func(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
			assert.Equal(t, 50, limit)
			assert.Equal(t, 0, offset)
			return nil, errors.New("boom")
		},
	}
	svc := NewAuditService(repo, discardLogger())

	_, err := svc.History(context.Background(), "user-1", 500, -3)
	assert.Error(t, err)
}
