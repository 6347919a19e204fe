package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/internal/services"
	pkghttp "github.com/BradenHooton/showroom/pkg/http"
	"github.com/go-chi/chi/v5"
)

const submissionReceivedMessage = "Thank you for contacting us. We will be in touch shortly."

// SubmissionService defines the public intake and the admin inbox operations
type SubmissionService interface {
	SubmitInquiry(ctx context.Context, form services.InquiryForm, client services.ClientInfo) (*services.SubmissionResult, error)
	SubmitDealershipInquiry(ctx context.Context, form services.DealershipInquiryForm, client services.ClientInfo) (*services.SubmissionResult, error)
	ListInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, int, error)
	GetInquiry(ctx context.Context, id string) (*models.Inquiry, error)
	ListDealershipInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, int, error)
	GetDealershipInquiry(ctx context.Context, id string) (*models.DealershipInquiry, error)
	UpdateSubmission(ctx context.Context, kind models.SubmissionKind, id string, update services.SubmissionUpdate) error
	DeleteSubmission(ctx context.Context, kind models.SubmissionKind, id string) error
}

// SubmissionHandler serves the public inquiry forms and the admin inbox
type SubmissionHandler struct {
	service  SubmissionService
	ipConfig *pkghttp.IPConfig
	logger   *slog.Logger
}

func NewSubmissionHandler(service SubmissionService, ipConfig *pkghttp.IPConfig, logger *slog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:  service,
		ipConfig: ipConfig,
		logger:   logger,
	}
}

// InquiryRequest is the public contact form. Website is the honeypot field and
// must stay empty.
type InquiryRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone" validate:"max=30"`
	Company     string `json:"company" validate:"max=200"`
	Subject     string `json:"subject" validate:"max=200"`
	Message     string `json:"message"`
	InquiryType string `json:"inquiry_type" validate:"max=50"`
	Website     string `json:"website"`
}

// DealershipInquiryRequest is the public dealership interest form
type DealershipInquiryRequest struct {
	CompanyName   string `json:"company_name" validate:"max=200"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone" validate:"max=30"`
	Location      string `json:"location" validate:"max=200"`
	MonthlyVolume string `json:"monthly_volume" validate:"max=32"`
	Message       string `json:"message"`
	Website       string `json:"website"`
}

// UpdateSubmissionRequest changes the workflow status and/or the assignee.
// An empty assigned_to clears the assignment.
type UpdateSubmissionRequest struct {
	Status     *string `json:"status" validate:"omitempty,oneof=new in_progress resolved closed"`
	AssignedTo *string `json:"assigned_to"`
}

type submissionMetaResponse struct {
	ID                string     `json:"id"`
	Priority          string     `json:"priority"`
	Status            string     `json:"status"`
	Flags             []string   `json:"flags"`
	RecentSubmissions int        `json:"recent_submissions"`
	AssignedTo        *string    `json:"assigned_to"`
	IPAddress         string     `json:"ip_address"`
	UserAgent         string     `json:"user_agent"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

// InquiryResponse is a general inquiry in the admin inbox
type InquiryResponse struct {
	submissionMetaResponse
	Name        string `json:"name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Company     string `json:"company"`
	Subject     string `json:"subject"`
	Message     string `json:"message"`
	InquiryType string `json:"inquiry_type"`
}

// DealershipInquiryResponse is a dealership inquiry in the admin inbox
type DealershipInquiryResponse struct {
	submissionMetaResponse
	CompanyName   string `json:"company_name"`
	ContactName   string `json:"contact_name"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Location      string `json:"location"`
	MonthlyVolume string `json:"monthly_volume"`
	Message       string `json:"message"`
}

func metaToResponse(m models.SubmissionMeta) submissionMetaResponse {
	flags := make([]string, len(m.Metadata.Flags))
	for i, f := range m.Metadata.Flags {
		flags[i] = string(f)
	}

	resp := submissionMetaResponse{
		ID:                m.ID,
		Priority:          string(m.Priority),
		Status:            string(m.Status),
		Flags:             flags,
		RecentSubmissions: m.Metadata.RecentSubmissions,
		AssignedTo:        m.AssignedTo,
		IPAddress:         m.IPAddress,
		UserAgent:         m.UserAgent,
		CreatedAt:         m.CreatedAt,
	}
	if !m.UpdatedAt.IsZero() {
		updated := m.UpdatedAt
		resp.UpdatedAt = &updated
	}
	return resp
}

func inquiryToResponse(inq *models.Inquiry) *InquiryResponse {
	return &InquiryResponse{
		submissionMetaResponse: metaToResponse(inq.SubmissionMeta),
		Name:                   inq.Name,
		Email:                  inq.Email,
		Phone:                  inq.Phone,
		Company:                inq.Company,
		Subject:                inq.Subject,
		Message:                inq.Message,
		InquiryType:            inq.InquiryType,
	}
}

func dealershipToResponse(inq *models.DealershipInquiry) *DealershipInquiryResponse {
	return &DealershipInquiryResponse{
		submissionMetaResponse: metaToResponse(inq.SubmissionMeta),
		CompanyName:            inq.CompanyName,
		ContactName:            inq.ContactName,
		Email:                  inq.Email,
		Phone:                  inq.Phone,
		Location:               inq.Location,
		MonthlyVolume:          inq.MonthlyVolume,
		Message:                inq.Message,
	}
}

// RegisterPublicRoutes mounts the two public forms. The caller wraps router
// with the submission rate limiter.
func (h *SubmissionHandler) RegisterPublicRoutes(router chi.Router) {
	router.Post("/inquiries", h.SubmitInquiry)
	router.Post("/dealership-inquiries", h.SubmitDealershipInquiry)
}

// RegisterAdminRoutes mounts the inbox on an admin-only router
func (h *SubmissionHandler) RegisterAdminRoutes(router chi.Router) {
	router.Route("/inquiries", func(r chi.Router) {
		r.Get("/", h.ListInquiries)
		r.Get("/{id}", h.GetInquiry)
		r.Patch("/{id}", h.updateSubmission(models.SubmissionKindGeneral))
		r.Delete("/{id}", h.deleteSubmission(models.SubmissionKindGeneral))
	})
	router.Route("/dealership-inquiries", func(r chi.Router) {
		r.Get("/", h.ListDealershipInquiries)
		r.Get("/{id}", h.GetDealershipInquiry)
		r.Patch("/{id}", h.updateSubmission(models.SubmissionKindDealership))
		r.Delete("/{id}", h.deleteSubmission(models.SubmissionKindDealership))
	})
}

func (h *SubmissionHandler) clientInfo(r *http.Request) services.ClientInfo {
	return services.ClientInfo{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		UserAgent: r.UserAgent(),
	}
}

func isHoneypotFilled(value string) bool {
	return strings.TrimSpace(value) != ""
}

// SubmitInquiry handles POST /api/inquiries. Accepted and honeypot-discarded
// submissions get the same 201 response.
func (h *SubmissionHandler) SubmitInquiry(w http.ResponseWriter, r *http.Request) {
	var req InquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if !isHoneypotFilled(req.Website) {
		if err := ValidateRequest(req); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	_, err := h.service.SubmitInquiry(r.Context(), services.InquiryForm{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       strings.TrimSpace(req.Phone),
		Company:     strings.TrimSpace(req.Company),
		Subject:     strings.TrimSpace(req.Subject),
		Message:     req.Message,
		InquiryType: strings.TrimSpace(req.InquiryType),
		Honeypot:    req.Website,
	}, h.clientInfo(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{"message": submissionReceivedMessage})
}

// SubmitDealershipInquiry handles POST /api/dealership-inquiries
func (h *SubmissionHandler) SubmitDealershipInquiry(w http.ResponseWriter, r *http.Request) {
	var req DealershipInquiryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "invalid request body")
		return
	}

	if !isHoneypotFilled(req.Website) {
		if err := ValidateRequest(req); err != nil {
			writeServiceError(w, err)
			return
		}
	}

	_, err := h.service.SubmitDealershipInquiry(r.Context(), services.DealershipInquiryForm{
		CompanyName:   strings.TrimSpace(req.CompanyName),
		ContactName:   req.ContactName,
		Email:         req.Email,
		Phone:         strings.TrimSpace(req.Phone),
		Location:      strings.TrimSpace(req.Location),
		MonthlyVolume: strings.TrimSpace(req.MonthlyVolume),
		Message:       req.Message,
		Honeypot:      req.Website,
	}, h.clientInfo(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, map[string]string{"message": submissionReceivedMessage})
}

func statusFilter(r *http.Request) (models.SubmissionStatus, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("status"))
	if raw == "" {
		return "", nil
	}
	status, err := models.ParseSubmissionStatus(raw)
	if err != nil {
		return "", &models.FieldError{Field: "status", Message: "must be one of: new in_progress resolved closed"}
	}
	return status, nil
}

// ListInquiries handles GET /admin/inquiries?status=&limit=&offset=
func (h *SubmissionHandler) ListInquiries(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	list, total, err := h.service.ListInquiries(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*InquiryResponse, len(list))
	for i, inq := range list {
		resp[i] = inquiryToResponse(inq)
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"inquiries": resp, "total": total})
}

// GetInquiry handles GET /admin/inquiries/{id}
func (h *SubmissionHandler) GetInquiry(w http.ResponseWriter, r *http.Request) {
	inq, err := h.service.GetInquiry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, inquiryToResponse(inq))
}

// ListDealershipInquiries handles GET /admin/dealership-inquiries
func (h *SubmissionHandler) ListDealershipInquiries(w http.ResponseWriter, r *http.Request) {
	status, err := statusFilter(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit, offset, err := parsePagination(r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	list, total, err := h.service.ListDealershipInquiries(r.Context(), status, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := make([]*DealershipInquiryResponse, len(list))
	for i, inq := range list {
		resp[i] = dealershipToResponse(inq)
	}
	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"inquiries": resp, "total": total})
}

// GetDealershipInquiry handles GET /admin/dealership-inquiries/{id}
func (h *SubmissionHandler) GetDealershipInquiry(w http.ResponseWriter, r *http.Request) {
	inq, err := h.service.GetDealershipInquiry(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, dealershipToResponse(inq))
}

func (h *SubmissionHandler) updateSubmission(kind models.SubmissionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		var req UpdateSubmissionRequest
		if err := decodeJSON(w, r, &req); err != nil {
			pkghttp.WriteBadRequest(w, "invalid request body")
			return
		}
		if err := ValidateRequest(req); err != nil {
			writeServiceError(w, err)
			return
		}
		if req.Status == nil && req.AssignedTo == nil {
			pkghttp.WriteBadRequest(w, "nothing to update")
			return
		}

		var update services.SubmissionUpdate
		if req.Status != nil {
			status := models.SubmissionStatus(*req.Status)
			update.Status = &status
		}
		if req.AssignedTo != nil {
			if assignee := strings.TrimSpace(*req.AssignedTo); assignee == "" {
				update.Unassign = true
			} else {
				update.AssignedTo = &assignee
			}
		}

		if err := h.service.UpdateSubmission(r.Context(), kind, id, update); err != nil {
			writeServiceError(w, err)
			return
		}

		h.logger.InfoContext(r.Context(), "submission updated",
			slog.String("kind", string(kind)),
			slog.String("id", id),
		)
		w.WriteHeader(http.StatusNoContent)
	}
}

func (h *SubmissionHandler) deleteSubmission(kind models.SubmissionKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.DeleteSubmission(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
			writeServiceError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
