package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenKeyFetcher loads the account whose TokenKey is mixed into the signing key.
type TokenKeyFetcher interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// TokenManager issues and validates HS256 access and refresh tokens.
// The signing key is the global secret followed by the account's TokenKey,
// so rotating a TokenKey invalidates every token of that account.
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
	users              TokenKeyFetcher
	now                func() time.Time
}

// NewTokenManager creates a TokenManager. A nil users fetcher signs with the
// global secret only.
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration, users TokenKeyFetcher) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
		users:              users,
		now:                time.Now,
	}
}

func (tm *TokenManager) signingKey(tokenKey string) []byte {
	return []byte(tm.secret + tokenKey)
}

func (tm *TokenManager) AccessTokenExpiry() time.Duration {
	return tm.accessTokenExpiry
}

func (tm *TokenManager) GenerateAccessToken(user *models.User) (string, error) {
	return tm.generate(user, models.TokenTypeAccess, tm.accessTokenExpiry)
}

func (tm *TokenManager) GenerateRefreshToken(user *models.User) (string, error) {
	return tm.generate(user, models.TokenTypeRefresh, tm.refreshTokenExpiry)
}

func (tm *TokenManager) generate(user *models.User, tokenType string, ttl time.Duration) (string, error) {
	now := tm.now()
	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: user.ID,
		Email:  user.Email,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	key := tm.signingKey("")
	if tm.users != nil {
		key = tm.signingKey(user.TokenKey)
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and expiry and returns the claims.
// Tokens of unknown accounts are rejected.
func (tm *TokenManager) ValidateToken(ctx context.Context, tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		if tm.users == nil {
			return tm.signingKey(""), nil
		}

		parsed, ok := token.Claims.(*models.TokenClaims)
		if !ok || parsed.UserID == "" {
			return nil, errors.New("token has no subject")
		}

		user, err := tm.users.GetByID(ctx, parsed.UserID)
		if err != nil {
			return nil, fmt.Errorf("load token key: %w", err)
		}
		return tm.signingKey(user.TokenKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(tm.now))

	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, models.ErrUnauthorized
	}

	if claims.Type != models.TokenTypeAccess && claims.Type != models.TokenTypeRefresh {
		return nil, fmt.Errorf("invalid token type %q", claims.Type)
	}

	return claims, nil
}
