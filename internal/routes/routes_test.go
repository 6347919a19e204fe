package routes

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/config"
	"github.com/BradenHooton/showroom/internal/handlers"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type accountTable map[string]*models.User

func (a accountTable) GetByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := a[id]; ok {
		return u, nil
	}
	return nil, models.ErrNotFound
}

type noRevocations struct{}

func (noRevocations) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return false, nil
}

type routerFixture struct {
	router   chi.Router
	tokens   *auth.TokenManager
	accounts accountTable
}

func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	until := time.Now().Add(time.Hour)
	accounts := accountTable{
		"admin-1":   {ID: "admin-1", Email: "admin@example.com", Role: models.RoleAdmin, Status: models.StatusActive, TokenKey: "k1"},
		"user-1":    {ID: "user-1", Email: "sales@example.com", Role: models.RoleUser, Status: models.StatusActive, TokenKey: "k2"},
		"blocked-1": {ID: "blocked-1", Email: "old@example.com", Role: models.RoleAdmin, Status: models.StatusBlocked, BlockedUntil: &until, TokenKey: "k3"},
	}
	tokens := auth.NewTokenManager("routes-test-secret-32-characters!", 15*time.Minute, time.Hour, accounts)

	router := chi.NewRouter()
	RegisterRoutes(router, Handlers{
		Users:       handlers.NewUserHandler(&handlers.MockAccountService{}),
		Submissions: handlers.NewSubmissionHandler(&handlers.MockSubmissionService{}, nil, logger),
		Auth:        handlers.NewAuthHandler(&handlers.MockAuthService{}),
		MFA:         handlers.NewMFAHandler(&handlers.MockMFAService{}, logger),
		Admin:       handlers.NewAdminHandler(&handlers.MockAdminService{}),
		Health:      handlers.NewHealthHandler(func(ctx context.Context) error { return nil }, nil),
	}, Security{
		Tokens:      tokens,
		Revocations: noRevocations{},
		Accounts:    accounts,
		RateLimits: config.RateLimitConfig{
			SubmissionShortLimit:  3,
			SubmissionShortWindow: 15 * time.Minute,
			SubmissionLongLimit:   10,
			SubmissionLongWindow:  time.Hour,
			LoginLimit:            5,
			LoginWindow:           time.Minute,
		},
		Logger: logger,
	})

	return &routerFixture{router: router, tokens: tokens, accounts: accounts}
}

func (f *routerFixture) bearer(t *testing.T, id string) string {
	t.Helper()
	token, err := f.tokens.GenerateAccessToken(f.accounts[id])
	require.NoError(t, err)
	return "Bearer " + token
}

func (f *routerFixture) do(method, path, authorization, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.10:4000"
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error
}

func TestRoutes_Health(t *testing.T) {
	f := newRouterFixture(t)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/health", "", "").Code)
}

func TestRoutes_AdminRequiresToken(t *testing.T) {
	f := newRouterFixture(t)
	w := f.do(http.MethodGet, "/admin/dashboard/stats", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoutes_AdminAccess(t *testing.T) {
	f := newRouterFixture(t)

	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/dashboard/stats", f.bearer(t, "admin-1"), "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/users", f.bearer(t, "admin-1"), "").Code)
	assert.Equal(t, http.StatusOK, f.do(http.MethodGet, "/admin/inquiries", f.bearer(t, "admin-1"), "").Code)

	w := f.do(http.MethodGet, "/admin/users", f.bearer(t, "user-1"), "")
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "forbidden", errorCode(t, w))
}

func TestRoutes_BlockedAccountRefusedWithValidToken(t *testing.T) {
	f := newRouterFixture(t)
	w := f.do(http.MethodGet, "/admin/users", f.bearer(t, "blocked-1"), "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "account_blocked", errorCode(t, w))
}

func TestRoutes_PublicSubmissionsAreRateGated(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"name":"Dana","email":"dana@example.com","message":"Looking at the new hatchback."}`

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusCreated, f.do(http.MethodPost, "/api/inquiries", "", body).Code, "request %d", i+1)
	}
	w := f.do(http.MethodPost, "/api/inquiries", "", body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "rate_limit_exceeded", errorCode(t, w))
}

func TestRoutes_LoginLimit(t *testing.T) {
	f := newRouterFixture(t)
	body := `{"email":"admin@example.com","password":"wrong"}`

	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusUnauthorized, f.do(http.MethodPost, "/auth/login", "", body).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, f.do(http.MethodPost, "/auth/login", "", body).Code)
}
