package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/pkg/auth"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `id, email, password_hash, name, token_key, role, status, blocked_at, blocked_until,
	admin_notes, mfa_enabled, mfa_secret, mfa_nonce, password_changed_at, created_at, updated_at`

type UserRepository struct {
	db   *database.DB
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db, pool: db.Pool}
}

// rowScanner is satisfied by pgx.Row and pgx.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User

	err := scanner.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.TokenKey,
		&user.Role, &user.Status, &user.BlockedAt, &user.BlockedUntil,
		&user.AdminNotes, &user.MFAEnabled, &user.MFASecret, &user.MFANonce,
		&user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, email))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	user.ID = uuid.New().String()

	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate token key: %w", err)
	}
	user.TokenKey = tokenKey

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if user.Status == "" {
		user.Status = models.StatusActive
	}

	query := `
		INSERT INTO users (id, email, password_hash, name, token_key, role, status, admin_notes, password_changed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.TokenKey,
		user.Role, user.Status, user.AdminNotes, user.PasswordChangedAt,
		user.CreatedAt, user.UpdatedAt,
	))
}

// UpdateWithLock reads the account under SELECT ... FOR UPDATE, passes it to fn
// and persists the account fn returns, all inside one transaction. Concurrent
// updates of the same account are serialized. Returning an error from fn rolls
// back without writing.
func (r *UserRepository) UpdateWithLock(ctx context.Context, id string, fn func(current *models.User) (*models.User, error)) (*models.User, error) {
	var saved *models.User

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		current, err := scanUserRow(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return err
		}

		next, err := fn(current)
		if err != nil {
			return err
		}

		next.UpdatedAt = time.Now().UTC()
		query := `
			UPDATE users SET name = $1, role = $2, status = $3, blocked_at = $4, blocked_until = $5,
				admin_notes = $6, updated_at = $7
			WHERE id = $8
			RETURNING ` + userColumns

		saved, err = scanUserRow(tx.QueryRow(ctx, query,
			next.Name, next.Role, next.Status, next.BlockedAt, next.BlockedUntil,
			next.AdminNotes, next.UpdatedAt, id,
		))
		return err
	})
	if err != nil {
		return nil, err
	}

	return saved, nil
}

// UpdateMFA stores the encrypted TOTP secret and the enabled flag.
func (r *UserRepository) UpdateMFA(ctx context.Context, id string, enabled bool, secret, nonce []byte) error {
	query := `UPDATE users SET mfa_enabled = $1, mfa_secret = $2, mfa_nonce = $3, updated_at = NOW() WHERE id = $4`

	result, err := r.pool.Exec(ctx, query, enabled, secret, nonce, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// RotateTokenKey invalidates every token signed for the account.
func (r *UserRepository) RotateTokenKey(ctx context.Context, id string) error {
	tokenKey, err := auth.GenerateTokenKey()
	if err != nil {
		return fmt.Errorf("failed to generate token key: %w", err)
	}

	result, err := r.pool.Exec(ctx, `UPDATE users SET token_key = $1, updated_at = NOW() WHERE id = $2`, tokenKey, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}

// CountByStatusAndRole returns account totals keyed by status and by role.
func (r *UserRepository) CountByStatusAndRole(ctx context.Context) (map[models.AccountStatus]int, map[models.Role]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, role, COUNT(*) FROM users GROUP BY status, role`)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count users: %w", err)
	}
	defer rows.Close()

	byStatus := make(map[models.AccountStatus]int)
	byRole := make(map[models.Role]int)
	for rows.Next() {
		var status models.AccountStatus
		var role models.Role
		var n int
		if err := rows.Scan(&status, &role, &n); err != nil {
			return nil, nil, fmt.Errorf("failed to scan user counts: %w", err)
		}
		byStatus[status] += n
		byRole[role] += n
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return byStatus, byRole, nil
}
