package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
)

var ErrMFAUnavailable = errors.New("mfa is not configured on this server")

// MFASetup is returned once when an admin starts enrolment.
type MFASetup struct {
	Secret string `json:"secret"`
	QRCode string `json:"qr_code"`
}

// MFAService manages TOTP enrolment for admin accounts.
type MFAService struct {
	users  UserRepository
	totp   *auth.TOTPManager
	logger *slog.Logger
	now    func() time.Time
}

// NewMFAService creates an MFAService. A nil totp manager disables MFA.
func NewMFAService(users UserRepository, totp *auth.TOTPManager, logger *slog.Logger) *MFAService {
	return &MFAService{
		users:  users,
		totp:   totp,
		logger: logger,
		now:    time.Now,
	}
}

// Setup stores a fresh encrypted secret for the account. MFA stays disabled
// until Enable confirms a code from it.
func (s *MFAService) Setup(ctx context.Context, account *models.User) (*MFASetup, error) {
	if s.totp == nil {
		return nil, ErrMFAUnavailable
	}
	if account.MFAEnabled {
		return nil, models.ErrConflict
	}

	enrollment, err := s.totp.Enroll(account.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to generate TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.users.UpdateMFA(ctx, account.ID, false, enrollment.EncryptedSecret, enrollment.Nonce); err != nil {
		s.logger.ErrorContext(ctx, "failed to store TOTP secret", slog.String("user_id", account.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "mfa setup started", slog.String("user_id", account.ID))
	return &MFASetup{Secret: enrollment.Secret, QRCode: enrollment.QRCodeDataURL}, nil
}

// Enable turns MFA on once code matches the pending secret.
func (s *MFAService) Enable(ctx context.Context, account *models.User, code string) error {
	if s.totp == nil {
		return ErrMFAUnavailable
	}
	if account.MFAEnabled {
		return models.ErrConflict
	}
	if len(account.MFASecret) == 0 {
		return models.ErrBadRequest
	}

	if err := s.Verify(ctx, account, code); err != nil {
		return err
	}

	if err := s.users.UpdateMFA(ctx, account.ID, true, account.MFASecret, account.MFANonce); err != nil {
		s.logger.ErrorContext(ctx, "failed to enable mfa", slog.String("user_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "mfa enabled", slog.String("user_id", account.ID))
	return nil
}

// Verify checks code against the account's stored secret.
func (s *MFAService) Verify(ctx context.Context, account *models.User, code string) error {
	if s.totp == nil {
		return ErrMFAUnavailable
	}
	if code == "" {
		return models.ErrMFARequired
	}

	ok, err := s.totp.Verify(account.MFASecret, account.MFANonce, code, s.now())
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to decrypt TOTP secret", slog.String("user_id", account.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !ok {
		s.logger.InfoContext(ctx, "invalid mfa code", slog.String("user_id", account.ID))
		return models.ErrInvalidMFACode
	}
	return nil
}
