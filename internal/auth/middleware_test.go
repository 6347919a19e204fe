package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRevocations struct {
	revoked map[string]bool
	err     error
}

func (s *stubRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return s.revoked[jti], nil
}

func blockedGate(account *models.User, now time.Time) error {
	if account.Status != models.StatusBlocked {
		return nil
	}
	remaining := int64(90)
	return &models.AccountBlockedError{RemainingBlockSeconds: &remaining}
}

func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func newMiddlewareFixture(t *testing.T, user *models.User) (*TokenManager, *stubUsers) {
	t.Helper()
	users := &stubUsers{users: map[string]*models.User{user.ID: user}}
	return NewTokenManager(testSecret, 15*time.Minute, time.Hour, users), users
}

func TestAuthenticate(t *testing.T) {
	user := &models.User{ID: "user-1", Email: "admin@example.com", Role: models.RoleAdmin, TokenKey: "key-1"}
	tm, _ := newMiddlewareFixture(t, user)

	access, err := tm.GenerateAccessToken(user)
	require.NoError(t, err)
	refresh, err := tm.GenerateRefreshToken(user)
	require.NoError(t, err)
	accessClaims, err := tm.ValidateToken(context.Background(), access)
	require.NoError(t, err)

	tests := []struct {
		name        string
		header      string
		revocations *stubRevocations
		wantStatus  int
		wantNext    bool
	}{
		{name: "valid access token", header: "Bearer " + access, revocations: &stubRevocations{}, wantStatus: http.StatusOK, wantNext: true},
		{name: "lowercase scheme", header: "bearer " + access, revocations: &stubRevocations{}, wantStatus: http.StatusOK, wantNext: true},
		{name: "missing header", header: "", revocations: &stubRevocations{}, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", header: "Basic abc", revocations: &stubRevocations{}, wantStatus: http.StatusUnauthorized},
		{name: "garbage token", header: "Bearer not.a.jwt", revocations: &stubRevocations{}, wantStatus: http.StatusUnauthorized},
		{name: "refresh token", header: "Bearer " + refresh, revocations: &stubRevocations{}, wantStatus: http.StatusUnauthorized},
		{
			name:        "revoked token",
			header:      "Bearer " + access,
			revocations: &stubRevocations{revoked: map[string]bool{accessClaims.ID: true}},
			wantStatus:  http.StatusUnauthorized,
		},
		{
			name:        "revocation store down",
			header:      "Bearer " + access,
			revocations: &stubRevocations{err: errors.New("connection refused")},
			wantStatus:  http.StatusServiceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			var seen *models.TokenClaims
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
				seen = GetClaims(r)
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			Authenticate(tm, tt.revocations, slog.Default())(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantNext, called)
			if tt.wantNext {
				require.NotNil(t, seen)
				assert.Equal(t, "user-1", seen.UserID)
			}
		})
	}
}

func TestRequireActiveAccount(t *testing.T) {
	tests := []struct {
		name       string
		status     models.AccountStatus
		wantStatus int
		wantCode   string
	}{
		{name: "active", status: models.StatusActive, wantStatus: http.StatusOK},
		{name: "blocked", status: models.StatusBlocked, wantStatus: http.StatusForbidden, wantCode: "account_blocked"},
		{name: "inactive", status: models.StatusInactive, wantStatus: http.StatusForbidden, wantCode: "account_inactive"},
		{name: "pending", status: models.StatusPending, wantStatus: http.StatusForbidden, wantCode: "account_pending"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := &models.User{ID: "user-1", Role: models.RoleUser, Status: tt.status}
			users := &stubUsers{users: map[string]*models.User{"user-1": user}}

			called := false
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			req = req.WithContext(WithClaims(req.Context(), &models.TokenClaims{UserID: "user-1"}))
			rec := httptest.NewRecorder()

			RequireActiveAccount(users, blockedGate)(okHandler(&called)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
			if tt.wantCode != "" {
				var body map[string]any
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
				assert.Equal(t, tt.wantCode, body["error"])
			}
		})
	}
}

func TestRequireActiveAccount_BlockedCarriesRemainingSeconds(t *testing.T) {
	user := &models.User{ID: "user-1", Status: models.StatusBlocked}
	users := &stubUsers{users: map[string]*models.User{"user-1": user}}

	called := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &models.TokenClaims{UserID: "user-1"}))
	rec := httptest.NewRecorder()

	RequireActiveAccount(users, blockedGate)(okHandler(&called)).ServeHTTP(rec, req)

	var body struct {
		RemainingBlockSeconds *int64 `json:"remaining_block_seconds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotNil(t, body.RemainingBlockSeconds)
	assert.Equal(t, int64(90), *body.RemainingBlockSeconds)
}

func TestRequireActiveAccount_UnknownAccount(t *testing.T) {
	called := false
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), &models.TokenClaims{UserID: "ghost"}))
	rec := httptest.NewRecorder()

	RequireActiveAccount(&stubUsers{}, blockedGate)(okHandler(&called)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, called)
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		account    *models.User
		wantStatus int
	}{
		{name: "admin allowed", account: &models.User{ID: "a", Role: models.RoleAdmin}, wantStatus: http.StatusOK},
		{name: "user forbidden", account: &models.User{ID: "u", Role: models.RoleUser}, wantStatus: http.StatusForbidden},
		{name: "no account", account: nil, wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.account != nil {
				req = req.WithContext(WithAccount(req.Context(), tt.account))
			}
			rec := httptest.NewRecorder()

			RequireRole(models.RoleAdmin)(okHandler(&called)).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, called)
		})
	}
}
