package repositories

import (
	"context"
	"fmt"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const suspensionAuditColumns = `id, user_id, COALESCE(actor_id::text, ''), action, reason,
	previous_blocked_until, new_blocked_until, created_at`

// SuspensionAuditRepository stores the append-only block/unblock/extend trail.
// It exposes no update or delete.
type SuspensionAuditRepository struct {
	pool *pgxpool.Pool
}

func NewSuspensionAuditRepository(db *database.DB) *SuspensionAuditRepository {
	return &SuspensionAuditRepository{pool: db.Pool}
}

func scanSuspensionAuditRow(row rowScanner) (*models.SuspensionAuditEntry, error) {
	var entry models.SuspensionAuditEntry

	err := row.Scan(
		&entry.ID, &entry.UserID, &entry.ActorID, &entry.Action, &entry.Reason,
		&entry.PreviousBlockedUntil, &entry.NewBlockedUntil, &entry.CreatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &entry, nil
}

func scanSuspensionAuditRows(rows pgx.Rows) ([]*models.SuspensionAuditEntry, error) {
	defer rows.Close()

	entries := make([]*models.SuspensionAuditEntry, 0)

	for rows.Next() {
		entry, err := scanSuspensionAuditRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan suspension audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suspension audit rows: %w", err)
	}

	return entries, nil
}

// Append inserts one audit entry and returns it with its generated id.
func (r *SuspensionAuditRepository) Append(ctx context.Context, entry *models.SuspensionAuditEntry) (*models.SuspensionAuditEntry, error) {
	query := `
		INSERT INTO suspension_audit_entries (user_id, actor_id, action, reason, previous_blocked_until, new_blocked_until, created_at)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7)
		RETURNING ` + suspensionAuditColumns

	result, err := scanSuspensionAuditRow(r.pool.QueryRow(ctx, query,
		entry.UserID, entry.ActorID, entry.Action, entry.Reason,
		entry.PreviousBlockedUntil, entry.NewBlockedUntil, entry.CreatedAt,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to append suspension audit entry: %w", err)
	}

	return result, nil
}

// ListByUserID returns the trail for one account, newest first.
func (r *SuspensionAuditRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
	query := `
		SELECT ` + suspensionAuditColumns + `
		FROM suspension_audit_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query suspension audit entries: %w", database.MapPostgresError(err))
	}

	return scanSuspensionAuditRows(rows)
}
