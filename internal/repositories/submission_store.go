package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// submissionTable holds the queries shared by inquiries and dealership_inquiries.
// name is always a package constant, never caller input.
type submissionTable struct {
	pool *pgxpool.Pool
	name string
}

// CountRecent counts rows created at or after since that match the single field
// set in filter. Messages are compared by md5 so the hash index is used.
func (t submissionTable) CountRecent(ctx context.Context, filter models.RecentFilter, since time.Time) (int, error) {
	var where string
	var arg string

	switch {
	case filter.IPAddress != "":
		where, arg = "ip_address = $1", filter.IPAddress
	case filter.Email != "":
		where, arg = "lower(email) = lower($1)", filter.Email
	case filter.Message != "":
		where, arg = "md5(message) = md5($1)", filter.Message
	default:
		return 0, fmt.Errorf("count recent %s: empty filter", t.name)
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s AND created_at >= $2`, t.name, where)

	var n int
	if err := t.pool.QueryRow(ctx, query, arg, since).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// GetStatus returns the workflow status of a row.
func (t submissionTable) GetStatus(ctx context.Context, id string) (models.SubmissionStatus, error) {
	var status models.SubmissionStatus
	err := t.pool.QueryRow(ctx, fmt.Sprintf(`SELECT status FROM %s WHERE id = $1`, t.name), id).Scan(&status)
	if err != nil {
		return "", database.MapPostgresError(err)
	}
	return status, nil
}

// Update applies a status change and an assignment change in a single
// statement. It returns models.ErrConflict when change.From is set and the
// row has since moved to another status.
func (t submissionTable) Update(ctx context.Context, id string, change models.SubmissionChange) error {
	query := fmt.Sprintf(`
		UPDATE %s SET
			status = CASE WHEN $2::text = '' THEN status ELSE $2::text END,
			assigned_to = CASE WHEN $4::boolean THEN $5::uuid ELSE assigned_to END,
			updated_at = NOW()
		WHERE id = $1 AND ($3::text = '' OR status = $3::text)
	`, t.name)

	result, err := t.pool.Exec(ctx, query, id, string(change.To), string(change.From), change.SetAssignee, change.AssignedTo)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return t.missingOrConflict(ctx, id)
	}
	return nil
}

func (t submissionTable) Delete(ctx context.Context, id string) error {
	result, err := t.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, t.name), id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// Count returns the number of rows in status, or every row when status is empty.
func (t submissionTable) Count(ctx context.Context, status models.SubmissionStatus) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE ($1::text = '' OR status = $1::text)`, t.name)

	var n int
	if err := t.pool.QueryRow(ctx, query, string(status)).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// CountCreatedSince counts every submission created at or after since.
func (t submissionTable) CountCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := t.pool.QueryRow(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE created_at >= $1`, t.name), since).Scan(&n)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

// CountOpenByPriority counts submissions still in new or in_progress.
func (t submissionTable) CountOpenByPriority(ctx context.Context, priority models.Priority) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE priority = $1 AND status IN ('new', 'in_progress')`, t.name)

	var n int
	if err := t.pool.QueryRow(ctx, query, priority).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

func (t submissionTable) missingOrConflict(ctx context.Context, id string) error {
	var exists bool
	err := t.pool.QueryRow(ctx, fmt.Sprintf(`SELECT EXISTS(SELECT 1 FROM %s WHERE id = $1)`, t.name), id).Scan(&exists)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if !exists {
		return models.ErrNotFound
	}
	return models.ErrConflict
}

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
