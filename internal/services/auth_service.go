package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	pkgauth "github.com/BradenHooton/showroom/pkg/auth"
	pkglogger "github.com/BradenHooton/showroom/pkg/logger"
)

// TokenRevocationRepository defines the interface for token revocation operations
type TokenRevocationRepository interface {
	RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService handles login, token refresh and logout.
type AuthService struct {
	users      UserRepository
	revocation TokenRevocationRepository
	tm         *auth.TokenManager
	mfa        *MFAService
	logger     *slog.Logger
	now        func() time.Time
}

func NewAuthService(users UserRepository, tm *auth.TokenManager, revocation TokenRevocationRepository, mfa *MFAService, logger *slog.Logger) *AuthService {
	return &AuthService{
		users:      users,
		revocation: revocation,
		tm:         tm,
		mfa:        mfa,
		logger:     logger,
		now:        time.Now,
	}
}

type LoginInput struct {
	Email    string
	Password string
	TOTPCode string
}

// AuthResponse represents the response from auth operations
type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	User         *models.User `json:"-"`
}

// Login checks credentials, then the suspension gate, then account status,
// then MFA. Unknown emails and wrong passwords both yield ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.InfoContext(ctx, "login failed: invalid credentials", pkglogger.EmailAttr(email))
			return nil, models.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, in.Password); err != nil {
		s.logger.InfoContext(ctx, "login failed: invalid credentials", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	if err := s.checkAccountState(user); err != nil {
		s.logger.InfoContext(ctx, "login refused by account state",
			slog.String("user_id", user.ID),
			slog.String("status", string(user.Status)),
		)
		return nil, err
	}

	if user.MFAEnabled {
		if err := s.mfa.Verify(ctx, user, strings.TrimSpace(in.TOTPCode)); err != nil {
			return nil, err
		}
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return resp, nil
}

// Refresh exchanges a refresh token for a new pair and revokes the old one.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return nil, models.ErrUnauthorized
	}

	claims, err := s.tm.ValidateToken(ctx, refreshToken)
	if err != nil {
		s.logger.InfoContext(ctx, "refresh token validation failed", slog.Any("error", err))
		return nil, models.ErrUnauthorized
	}
	if claims.Type != models.TokenTypeRefresh {
		s.logger.WarnContext(ctx, "refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return nil, models.ErrUnauthorized
	}

	revoked, err := s.revocation.IsTokenRevoked(ctx, claims.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to check refresh token revocation", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if revoked {
		return nil, models.ErrUnauthorized
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.ErrorContext(ctx, "failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.checkAccountState(user); err != nil {
		return nil, err
	}

	if user.PasswordChangedAt != nil && claims.IssuedAt != nil && claims.IssuedAt.Time.Before(user.PasswordChangedAt.Truncate(time.Second)) {
		s.logger.InfoContext(ctx, "token refresh blocked: issued before password change", slog.String("user_id", user.ID))
		return nil, models.ErrUnauthorized
	}

	if err := s.revocation.RevokeToken(ctx, claims.ID, user.ID, models.TokenTypeRefresh, claims.ExpiresAt.Time, "rotated"); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke rotated refresh token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	resp, err := s.issueTokens(user)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to issue tokens", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.InfoContext(ctx, "token refreshed", slog.String("user_id", user.ID))
	return resp, nil
}

// Logout revokes the access token described by claims and, when given, the
// caller's refresh token.
func (s *AuthService) Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
	if err := s.revocation.RevokeToken(ctx, claims.ID, claims.UserID, claims.Type, claims.ExpiresAt.Time, "logout"); err != nil {
		s.logger.ErrorContext(ctx, "failed to revoke token", slog.String("jti", claims.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		refresh, err := s.tm.ValidateToken(ctx, refreshToken)
		if err == nil && refresh.Type == models.TokenTypeRefresh && refresh.UserID == claims.UserID {
			if err := s.revocation.RevokeToken(ctx, refresh.ID, refresh.UserID, refresh.Type, refresh.ExpiresAt.Time, "logout"); err != nil {
				s.logger.ErrorContext(ctx, "failed to revoke refresh token", slog.String("jti", refresh.ID), slog.Any("error", err))
				return models.ErrInternalServer
			}
		}
	}

	s.logger.InfoContext(ctx, "user logged out", slog.String("user_id", claims.UserID))
	return nil
}

// checkAccountState applies the suspension gate before the other statuses so
// a blocked account always learns its remaining block time.
func (s *AuthService) checkAccountState(user *models.User) error {
	if err := IsLoginAllowed(user, s.now()); err != nil {
		return err
	}

	switch user.Status {
	case models.StatusActive:
		return nil
	case models.StatusInactive:
		return models.ErrAccountInactive
	case models.StatusPending:
		return models.ErrAccountPending
	default:
		return models.ErrForbidden
	}
}

func (s *AuthService) issueTokens(user *models.User) (*AuthResponse, error) {
	access, err := s.tm.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}
	refresh, err := s.tm.GenerateRefreshToken(user)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.tm.AccessTokenExpiry() / time.Second),
		User:         user,
	}, nil
}
