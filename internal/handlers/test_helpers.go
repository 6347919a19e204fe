package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithAccountContext seeds the claims and loaded account the auth middleware
// would set for account.
func WithAccountContext(req *http.Request, account *models.User) *http.Request {
	claims := &models.TokenClaims{
		Type:   models.TokenTypeAccess,
		UserID: account.ID,
		Email:  account.Email,
		Role:   account.Role,
	}
	ctx := auth.WithClaims(req.Context(), claims)
	ctx = auth.WithAccount(ctx, account)
	return req.WithContext(ctx)
}

// WithChiRouteContext adds chi URL parameters to request context for testing
func WithChiRouteContext(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"), "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	t.Helper()
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAccountService implements AccountService for testing
type MockAccountService struct {
	GetAccountFunc            func(ctx context.Context, id string) (*models.User, error)
	ListAccountsFunc          func(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	CreateAccountFunc         func(ctx context.Context, actor services.Actor, in services.CreateAccountInput) (*models.User, error)
	UpdateAccountFunc         func(ctx context.Context, actorID, targetID string, changes services.AccountChanges) (*models.User, error)
	DeleteAccountFunc         func(ctx context.Context, actor services.Actor, targetID string) error
	ListSuspensionHistoryFunc func(ctx context.Context, accountID string, limit, offset int) ([]*models.SuspensionAuditEntry, error)
}

func (m *MockAccountService) GetAccount(ctx context.Context, id string) (*models.User, error) {
	if m.GetAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetAccountFunc(ctx, id)
}

func (m *MockAccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*models.User, int, error) {
	if m.ListAccountsFunc == nil {
		return []*models.User{}, 0, nil
	}
	return m.ListAccountsFunc(ctx, limit, offset)
}

func (m *MockAccountService) CreateAccount(ctx context.Context, actor services.Actor, in services.CreateAccountInput) (*models.User, error) {
	if m.CreateAccountFunc == nil {
		return nil, models.ErrConflict
	}
	return m.CreateAccountFunc(ctx, actor, in)
}

func (m *MockAccountService) UpdateAccount(ctx context.Context, actorID, targetID string, changes services.AccountChanges) (*models.User, error) {
	if m.UpdateAccountFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.UpdateAccountFunc(ctx, actorID, targetID, changes)
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, actor services.Actor, targetID string) error {
	if m.DeleteAccountFunc == nil {
		return nil
	}
	return m.DeleteAccountFunc(ctx, actor, targetID)
}

func (m *MockAccountService) ListSuspensionHistory(ctx context.Context, accountID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
	if m.ListSuspensionHistoryFunc == nil {
		return []*models.SuspensionAuditEntry{}, nil
	}
	return m.ListSuspensionHistoryFunc(ctx, accountID, limit, offset)
}

// MockSubmissionService implements SubmissionService for testing
type MockSubmissionService struct {
	SubmitInquiryFunc           func(ctx context.Context, form services.InquiryForm, client services.ClientInfo) (*services.SubmissionResult, error)
	SubmitDealershipInquiryFunc func(ctx context.Context, form services.DealershipInquiryForm, client services.ClientInfo) (*services.SubmissionResult, error)
	ListInquiriesFunc           func(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, int, error)
	GetInquiryFunc              func(ctx context.Context, id string) (*models.Inquiry, error)
	ListDealershipFunc          func(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, int, error)
	GetDealershipFunc           func(ctx context.Context, id string) (*models.DealershipInquiry, error)
	UpdateSubmissionFunc        func(ctx context.Context, kind models.SubmissionKind, id string, update services.SubmissionUpdate) error
	DeleteSubmissionFunc        func(ctx context.Context, kind models.SubmissionKind, id string) error
}

func (m *MockSubmissionService) SubmitInquiry(ctx context.Context, form services.InquiryForm, client services.ClientInfo) (*services.SubmissionResult, error) {
	if m.SubmitInquiryFunc == nil {
		return &services.SubmissionResult{ID: "inq-1", Verdict: services.VerdictAccept}, nil
	}
	return m.SubmitInquiryFunc(ctx, form, client)
}

func (m *MockSubmissionService) SubmitDealershipInquiry(ctx context.Context, form services.DealershipInquiryForm, client services.ClientInfo) (*services.SubmissionResult, error) {
	if m.SubmitDealershipInquiryFunc == nil {
		return &services.SubmissionResult{ID: "dealer-1", Verdict: services.VerdictAccept}, nil
	}
	return m.SubmitDealershipInquiryFunc(ctx, form, client)
}

func (m *MockSubmissionService) ListInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, int, error) {
	if m.ListInquiriesFunc == nil {
		return []*models.Inquiry{}, 0, nil
	}
	return m.ListInquiriesFunc(ctx, status, limit, offset)
}

func (m *MockSubmissionService) GetInquiry(ctx context.Context, id string) (*models.Inquiry, error) {
	if m.GetInquiryFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetInquiryFunc(ctx, id)
}

func (m *MockSubmissionService) ListDealershipInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, int, error) {
	if m.ListDealershipFunc == nil {
		return []*models.DealershipInquiry{}, 0, nil
	}
	return m.ListDealershipFunc(ctx, status, limit, offset)
}

func (m *MockSubmissionService) GetDealershipInquiry(ctx context.Context, id string) (*models.DealershipInquiry, error) {
	if m.GetDealershipFunc == nil {
		return nil, models.ErrNotFound
	}
	return m.GetDealershipFunc(ctx, id)
}

func (m *MockSubmissionService) UpdateSubmission(ctx context.Context, kind models.SubmissionKind, id string, update services.SubmissionUpdate) error {
	if m.UpdateSubmissionFunc == nil {
		return nil
	}
	return m.UpdateSubmissionFunc(ctx, kind, id, update)
}

func (m *MockSubmissionService) DeleteSubmission(ctx context.Context, kind models.SubmissionKind, id string) error {
	if m.DeleteSubmissionFunc == nil {
		return nil
	}
	return m.DeleteSubmissionFunc(ctx, kind, id)
}

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	LoginFunc   func(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error)
	RefreshFunc func(ctx context.Context, refreshToken string) (*services.AuthResponse, error)
	LogoutFunc  func(ctx context.Context, claims *models.TokenClaims, refreshToken string) error
}

func (m *MockAuthService) Login(ctx context.Context, in services.LoginInput) (*services.AuthResponse, error) {
	if m.LoginFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.LoginFunc(ctx, in)
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (*services.AuthResponse, error) {
	if m.RefreshFunc == nil {
		return nil, models.ErrUnauthorized
	}
	return m.RefreshFunc(ctx, refreshToken)
}

func (m *MockAuthService) Logout(ctx context.Context, claims *models.TokenClaims, refreshToken string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, claims, refreshToken)
}

// MockMFAService implements MFAServiceInterface for testing
type MockMFAService struct {
	SetupFunc  func(ctx context.Context, account *models.User) (*services.MFASetup, error)
	EnableFunc func(ctx context.Context, account *models.User, code string) error
}

func (m *MockMFAService) Setup(ctx context.Context, account *models.User) (*services.MFASetup, error) {
	if m.SetupFunc == nil {
		return nil, services.ErrMFAUnavailable
	}
	return m.SetupFunc(ctx, account)
}

func (m *MockMFAService) Enable(ctx context.Context, account *models.User, code string) error {
	if m.EnableFunc == nil {
		return nil
	}
	return m.EnableFunc(ctx, account, code)
}

// MockAdminService implements AdminServiceInterface for testing
type MockAdminService struct {
	GetStatsFunc func(ctx context.Context) (*services.DashboardStats, error)
}

func (m *MockAdminService) GetStats(ctx context.Context) (*services.DashboardStats, error) {
	if m.GetStatsFunc == nil {
		return &services.DashboardStats{}, nil
	}
	return m.GetStatsFunc(ctx)
}
