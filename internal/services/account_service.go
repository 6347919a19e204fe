package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	pkgauth "github.com/BradenHooton/showroom/pkg/auth"
	pkglogger "github.com/BradenHooton/showroom/pkg/logger"
)

// UserRepository defines the account store used by the services.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	UpdateWithLock(ctx context.Context, id string, fn func(current *models.User) (*models.User, error)) (*models.User, error)
	UpdateMFA(ctx context.Context, id string, enabled bool, secret, nonce []byte) error
	RotateTokenKey(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// CreateAccountInput carries the fields of an admin-created account.
type CreateAccountInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// AccountService orchestrates account reads and updates around the
// suspension rules in suspension.go.
type AccountService struct {
	users  UserRepository
	audit  *AuditService
	logger *slog.Logger
	now    func() time.Time
}

func NewAccountService(users UserRepository, audit *AuditService, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:  users,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

func (s *AccountService) GetAccount(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to get account", slog.String("user_id", id), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return user, nil
}

// ListAccounts returns one page of accounts and the total number of accounts.
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list accounts", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	total, err := s.users.Count(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count accounts", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return users, total, nil
}

// CreateAccount creates an account on behalf of actor. Unsupported roles are
// stored as user.
func (s *AccountService) CreateAccount(ctx context.Context, actor Actor, in CreateAccountInput) (*models.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	if email == "" {
		return nil, &models.FieldError{Field: "email", Message: "email is required"}
	}
	if name == "" {
		return nil, &models.FieldError{Field: "name", Message: "name is required"}
	}

	role, coerced := models.NormalizeRole(in.Role)
	if in.Role == "" {
		coerced = false
	}
	if role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return nil, models.ErrAdminGrantForbidden
	}

	if err := pkgauth.ValidatePassword(in.Password); err != nil {
		return nil, err
	}
	hash, err := pkgauth.HashPassword(in.Password)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &models.User{
		Email:             email,
		PasswordHash:      hash,
		Name:              name,
		Role:              role,
		Status:            models.StatusActive,
		PasswordChangedAt: &now,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.ErrorContext(ctx, "failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if coerced {
		s.logger.WarnContext(ctx, "unsupported role stored as user",
			slog.String("user_id", created.ID),
			slog.String("requested_role", in.Role),
		)
	}
	s.logger.InfoContext(ctx, "account created",
		slog.String("user_id", created.ID),
		slog.String("actor_id", actor.ID),
		slog.String("role", string(created.Role)),
		pkglogger.EmailAttr(created.Email),
	)
	return created, nil
}

// UpdateAccount applies changes to targetID as actorID. The target row stays
// locked from read to write so that concurrent updates of one account
// serialize and each audit entry matches the transition that was applied.
func (s *AccountService) UpdateAccount(ctx context.Context, actorID, targetID string, changes AccountChanges) (*models.User, error) {
	actorAccount, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "failed to load acting account", slog.String("actor_id", actorID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	actor := Actor{ID: actorAccount.ID, Role: actorAccount.Role}

	var outcome *SuspensionOutcome
	saved, err := s.users.UpdateWithLock(ctx, targetID, func(current *models.User) (*models.User, error) {
		o, err := ApplyUserUpdate(actor, current, changes, s.now().UTC())
		if err != nil {
			return nil, err
		}
		outcome = o
		return o.Account, nil
	})
	if err != nil {
		var authErr *models.AuthorizationError
		switch {
		case errors.As(err, &authErr):
			s.logger.WarnContext(ctx, "account update rejected",
				slog.String("actor_id", actorID),
				slog.String("user_id", targetID),
				slog.String("code", authErr.Code),
			)
			return nil, err
		case errors.Is(err, models.ErrNotFound),
			errors.Is(err, models.ErrBadRequest),
			errors.Is(err, models.ErrInvalidStatus),
			errors.Is(err, models.ErrBlockedUntilInPast),
			errors.Is(err, models.ErrBlockedUntilWithoutBlock):
			return nil, err
		default:
			s.logger.ErrorContext(ctx, "failed to update account", slog.String("user_id", targetID), slog.Any("error", err))
			return nil, models.ErrInternalServer
		}
	}

	if outcome.RoleCoerced {
		s.logger.WarnContext(ctx, "unsupported role stored as user",
			slog.String("user_id", targetID),
			slog.String("requested_role", *changes.Role),
		)
	}

	if outcome.Audit != nil {
		s.audit.RecordSuspension(ctx, outcome.Audit)

		if outcome.Audit.Action == models.SuspensionActionBlock {
			if err := s.users.RotateTokenKey(ctx, targetID); err != nil {
				s.logger.ErrorContext(ctx, "failed to rotate token key of blocked account",
					slog.String("user_id", targetID), slog.Any("error", err))
			}
		}
	}

	return saved, nil
}

// DeleteAccount removes targetID. Accounts cannot delete themselves and only
// admins may delete admins.
func (s *AccountService) DeleteAccount(ctx context.Context, actor Actor, targetID string) error {
	if actor.ID == targetID {
		return models.ErrSelfDelete
	}

	target, err := s.GetAccount(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Role == models.RoleAdmin && actor.Role != models.RoleAdmin {
		return models.ErrAdminModifyForbidden
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNotFound
		}
		s.logger.ErrorContext(ctx, "failed to delete account", slog.String("user_id", targetID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "account deleted", slog.String("user_id", targetID), slog.String("actor_id", actor.ID))
	return nil
}

func (s *AccountService) ListSuspensionHistory(ctx context.Context, accountID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	entries, err := s.audit.History(ctx, accountID, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list suspension history", slog.String("user_id", accountID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}

// EnsureAdmin creates the bootstrap admin account when no account with email
// exists yet.
func (s *AccountService) EnsureAdmin(ctx context.Context, email, password, name string) error {
	existing, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		if existing.Role != models.RoleAdmin {
			s.logger.WarnContext(ctx, "bootstrap admin email belongs to a non-admin account", slog.String("user_id", existing.ID))
		}
		return nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to look up bootstrap admin: %w", err)
	}

	created, err := s.CreateAccount(ctx, Actor{Role: models.RoleAdmin}, CreateAccountInput{
		Email:    email,
		Password: password,
		Name:     name,
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	s.logger.InfoContext(ctx, "bootstrap admin created", slog.String("user_id", created.ID))
	return nil
}
