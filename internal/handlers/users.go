package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountService defines the account operations used by the admin console
type AccountService interface {
	GetAccount(ctx context.Context, id string) (*models.User, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*models.User, int, error)
	CreateAccount(ctx context.Context, actor services.Actor, in services.CreateAccountInput) (*models.User, error)
	UpdateAccount(ctx context.Context, actorID, targetID string, changes services.AccountChanges) (*models.User, error)
	DeleteAccount(ctx context.Context, actor services.Actor, targetID string) error
	ListSuspensionHistory(ctx context.Context, accountID string, limit, offset int) ([]*models.SuspensionAuditEntry, error)
}

// UserHandler handles the admin account routes
type UserHandler struct {
	service AccountService
	now     func() time.Time
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(service AccountService) *UserHandler {
	return &UserHandler{
		service: service,
		now:     time.Now,
	}
}

// Request/Response DTOs

// CreateUserRequest represents the request body for creating an account
type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,min=1,max=100"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,max=32"`
}

// UpdateUserRequest represents the partial update of an account. Absent fields
// are left unchanged. blocked_until is RFC 3339.
type UpdateUserRequest struct {
	Role         *string    `json:"role" validate:"omitempty,max=32"`
	Status       *string    `json:"status" validate:"omitempty,max=32"`
	BlockedUntil *time.Time `json:"blocked_until"`
	AdminNotes   *string    `json:"admin_notes" validate:"omitempty,max=2000"`
	Reason       *string    `json:"reason" validate:"omitempty,max=500"`
}

// UserResponse represents an account in admin responses
type UserResponse struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Role                  string     `json:"role"`
	Status                string     `json:"status"`
	BlockedAt             *time.Time `json:"blocked_at"`
	BlockedUntil          *time.Time `json:"blocked_until"`
	RemainingBlockSeconds *int64     `json:"remaining_block_seconds"`
	AdminNotes            string     `json:"admin_notes"`
	MFAEnabled            bool       `json:"mfa_enabled"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

// ListUsersResponse represents a page of accounts
type ListUsersResponse struct {
	Users []*UserResponse `json:"users"`
	Total int             `json:"total"`
}

// SuspensionEntryResponse is one row of an account's suspension history
type SuspensionEntryResponse struct {
	ID                   string     `json:"id"`
	ActorID              string     `json:"actor_id"`
	Action               string     `json:"action"`
	Reason               *string    `json:"reason"`
	PreviousBlockedUntil *time.Time `json:"previous_blocked_until"`
	NewBlockedUntil      *time.Time `json:"new_blocked_until"`
	CreatedAt            time.Time  `json:"created_at"`
}

// SuspensionHistoryResponse lists audit entries newest first
type SuspensionHistoryResponse struct {
	Entries []*SuspensionEntryResponse `json:"entries"`
}

// userModelToResponse converts an account to a response DTO. The remaining
// block time is computed from now on every call.
func userModelToResponse(user *models.User, now time.Time) *UserResponse {
	return &UserResponse{
		ID:                    user.ID,
		Email:                 user.Email,
		Name:                  user.Name,
		Role:                  string(user.Role),
		Status:                string(user.Status),
		BlockedAt:             user.BlockedAt,
		BlockedUntil:          user.BlockedUntil,
		RemainingBlockSeconds: services.RemainingBlockSeconds(user, now),
		AdminNotes:            user.AdminNotes,
		MFAEnabled:            user.MFAEnabled,
		CreatedAt:             user.CreatedAt,
		UpdatedAt:             user.UpdatedAt,
	}
}

// RegisterRoutes registers the account routes on an admin-only router
func (h *UserHandler) RegisterRoutes(router chi.Router) {
	router.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{id}", h.GetUser)
		r.Patch("/{id}", h.UpdateUser)
		r.Delete("/{id}", h.DeleteUser)
		r.Get("/{id}/suspension-history", h.GetSuspensionHistory)
	})
}

// GetUser handles GET /admin/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	user, err := h.service.GetAccount(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(user, h.now()))
}

// ListUsers handles GET /admin/users?limit=&offset=
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	users, total, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	now := h.now()
	response := &ListUsersResponse{
		Users: make([]*UserResponse, len(users)),
		Total: total,
	}
	for i, user := range users {
		response.Users[i] = userModelToResponse(user, now)
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}

// CreateUser handles POST /admin/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccount(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req CreateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, err)
		return
	}

	created, err := h.service.CreateAccount(r.Context(), services.Actor{ID: actor.ID, Role: actor.Role}, services.CreateAccountInput{
		Email:    req.Email,
		Password: req.Password,
		Name:     strings.TrimSpace(req.Name),
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, userModelToResponse(created, h.now()))
}

// UpdateUser handles PATCH /admin/users/{id}. Authorization rejections answer
// 403 with their specific code.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccount(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	var req UpdateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		writeServiceError(w, err)
		return
	}

	changes := services.AccountChanges{
		Role:         req.Role,
		BlockedUntil: req.BlockedUntil,
		AdminNotes:   req.AdminNotes,
		Reason:       req.Reason,
	}
	if req.Status != nil {
		status := models.AccountStatus(strings.ToLower(strings.TrimSpace(*req.Status)))
		changes.Status = &status
	}

	updated, err := h.service.UpdateAccount(r.Context(), actor.ID, userID, changes)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, userModelToResponse(updated, h.now()))
}

// DeleteUser handles DELETE /admin/users/{id}
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	actor := auth.GetAccount(r)
	if actor == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), services.Actor{ID: actor.ID, Role: actor.Role}, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSuspensionHistory handles GET /admin/users/{id}/suspension-history
func (h *UserHandler) GetSuspensionHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "id")
	if userID == "" {
		pkghttp.WriteBadRequest(w, "user id is required")
		return
	}

	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	entries, err := h.service.ListSuspensionHistory(r.Context(), userID, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := &SuspensionHistoryResponse{Entries: make([]*SuspensionEntryResponse, len(entries))}
	for i, e := range entries {
		response.Entries[i] = &SuspensionEntryResponse{
			ID:                   e.ID,
			ActorID:              e.ActorID,
			Action:               string(e.Action),
			Reason:               e.Reason,
			PreviousBlockedUntil: e.PreviousBlockedUntil,
			NewBlockedUntil:      e.NewBlockedUntil,
			CreatedAt:            e.CreatedAt,
		}
	}

	pkghttp.WriteJSON(w, http.StatusOK, response)
}
