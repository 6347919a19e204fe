package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	pkglogger "github.com/BradenHooton/showroom/pkg/logger"
)

const (
	sameIPWindow    = time.Hour
	duplicateWindow = 24 * time.Hour
)

// SubmissionTable is the part of a submission store shared by both inquiry kinds.
type SubmissionTable interface {
	CountRecent(ctx context.Context, filter models.RecentFilter, since time.Time) (int, error)
	GetStatus(ctx context.Context, id string) (models.SubmissionStatus, error)
	Update(ctx context.Context, id string, change models.SubmissionChange) error
	Count(ctx context.Context, status models.SubmissionStatus) (int, error)
	Delete(ctx context.Context, id string) error
}

type InquiryStore interface {
	SubmissionTable
	Create(ctx context.Context, inq *models.Inquiry) (*models.Inquiry, error)
	GetByID(ctx context.Context, id string) (*models.Inquiry, error)
	List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, error)
}

type DealershipInquiryStore interface {
	SubmissionTable
	Create(ctx context.Context, inq *models.DealershipInquiry) (*models.DealershipInquiry, error)
	GetByID(ctx context.Context, id string) (*models.DealershipInquiry, error)
	List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, error)
}

// VelocityCounter tracks recent submissions per source IP outside Postgres.
type VelocityCounter interface {
	Record(ctx context.Context, kind models.SubmissionKind, ip string, at time.Time) error
	CountSince(ctx context.Context, kind models.SubmissionKind, ip string, since time.Time) (int, error)
}

// ClientInfo describes where a public submission came from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

type InquiryForm struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	Subject     string
	Message     string
	InquiryType string
	Honeypot    string
}

type DealershipInquiryForm struct {
	CompanyName   string
	ContactName   string
	Email         string
	Phone         string
	Location      string
	MonthlyVolume string
	Message       string
	Honeypot      string
}

// SubmissionResult describes an accepted or discarded submission. ID is empty
// for discarded ones.
type SubmissionResult struct {
	ID       string
	Verdict  Verdict
	Priority models.Priority
	Flags    []models.SubmissionFlag
}

// SubmissionUpdate is an admin change to a stored submission. Unassign clears
// the assignee; otherwise a non-nil AssignedTo sets it.
type SubmissionUpdate struct {
	Status     *models.SubmissionStatus
	AssignedTo *string
	Unassign   bool
}

// SubmissionService screens public submissions with the abuse heuristic and
// serves the admin inquiry inbox.
type SubmissionService struct {
	inquiries   InquiryStore
	dealerships DealershipInquiryStore
	velocity    VelocityCounter
	heuristic   *AbuseHeuristic
	notifier    Notifier
	logger      *slog.Logger
	now         func() time.Time
}

// NewSubmissionService creates a SubmissionService. velocity may be nil, in
// which case same-IP counts come from Postgres.
func NewSubmissionService(
	inquiries InquiryStore,
	dealerships DealershipInquiryStore,
	velocity VelocityCounter,
	heuristic *AbuseHeuristic,
	notifier Notifier,
	logger *slog.Logger,
) *SubmissionService {
	return &SubmissionService{
		inquiries:   inquiries,
		dealerships: dealerships,
		velocity:    velocity,
		heuristic:   heuristic,
		notifier:    notifier,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *SubmissionService) SubmitInquiry(ctx context.Context, form InquiryForm, client ClientInfo) (*SubmissionResult, error) {
	fields := SubmissionFields{
		Kind:    models.SubmissionKindGeneral,
		Name:    strings.TrimSpace(form.Name),
		Email:   strings.TrimSpace(form.Email),
		Company: strings.TrimSpace(form.Company),
		Subject: strings.TrimSpace(form.Subject),
		Message: strings.TrimSpace(form.Message),
	}

	eval, activity, err := s.screen(ctx, fields, form.Honeypot, client, s.inquiries)
	if err != nil || eval.Verdict == VerdictDiscard {
		return discardResult(eval), err
	}

	created, err := s.inquiries.Create(ctx, &models.Inquiry{
		SubmissionMeta: s.meta(eval, activity, client),
		Name:           fields.Name,
		Email:          fields.Email,
		Phone:          strings.TrimSpace(form.Phone),
		Company:        fields.Company,
		Subject:        fields.Subject,
		Message:        fields.Message,
		InquiryType:    strings.TrimSpace(form.InquiryType),
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store inquiry", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.afterAccept(ctx, fields, client, SubmissionNotice{
		Kind:     fields.Kind,
		ID:       created.ID,
		Priority: created.Priority,
		Flags:    created.Metadata.Flags,
		Name:     created.Name,
		Email:    created.Email,
		Subject:  created.Subject,
		Message:  created.Message,
	})

	return &SubmissionResult{ID: created.ID, Verdict: VerdictAccept, Priority: created.Priority, Flags: created.Metadata.Flags}, nil
}

func (s *SubmissionService) SubmitDealershipInquiry(ctx context.Context, form DealershipInquiryForm, client ClientInfo) (*SubmissionResult, error) {
	fields := SubmissionFields{
		Kind:          models.SubmissionKindDealership,
		Name:          strings.TrimSpace(form.ContactName),
		Email:         strings.TrimSpace(form.Email),
		Company:       strings.TrimSpace(form.CompanyName),
		Message:       strings.TrimSpace(form.Message),
		MonthlyVolume: strings.TrimSpace(form.MonthlyVolume),
	}

	eval, activity, err := s.screen(ctx, fields, form.Honeypot, client, s.dealerships)
	if err != nil || eval.Verdict == VerdictDiscard {
		return discardResult(eval), err
	}

	created, err := s.dealerships.Create(ctx, &models.DealershipInquiry{
		SubmissionMeta: s.meta(eval, activity, client),
		CompanyName:    fields.Company,
		ContactName:    fields.Name,
		Email:          fields.Email,
		Phone:          strings.TrimSpace(form.Phone),
		Location:       strings.TrimSpace(form.Location),
		MonthlyVolume:  fields.MonthlyVolume,
		Message:        fields.Message,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to store dealership inquiry", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.afterAccept(ctx, fields, client, SubmissionNotice{
		Kind:     fields.Kind,
		ID:       created.ID,
		Priority: created.Priority,
		Flags:    created.Metadata.Flags,
		Name:     created.ContactName,
		Email:    created.Email,
		Subject:  created.CompanyName + " (" + created.MonthlyVolume + " units/month)",
		Message:  created.Message,
	})

	return &SubmissionResult{ID: created.ID, Verdict: VerdictAccept, Priority: created.Priority, Flags: created.Metadata.Flags}, nil
}

// screen runs the heuristic. The honeypot is checked before any store I/O.
// A nil error with VerdictDiscard means the caller must answer success and
// store nothing.
func (s *SubmissionService) screen(ctx context.Context, fields SubmissionFields, honeypot string, client ClientInfo, table SubmissionTable) (Evaluation, RecentActivity, error) {
	if strings.TrimSpace(honeypot) != "" {
		s.logger.InfoContext(ctx, "honeypot submission discarded",
			slog.String("kind", string(fields.Kind)),
			slog.String("ip", client.IPAddress),
		)
		return Evaluation{Verdict: VerdictDiscard}, RecentActivity{}, nil
	}

	activity := s.recentActivity(ctx, fields, client.IPAddress, table)
	eval := s.heuristic.EvaluateSubmission(fields, activity, "")

	if eval.Verdict == VerdictReject {
		if len(eval.FieldErrors) > 0 {
			return eval, activity, eval.FieldErrors[0]
		}
		s.logger.WarnContext(ctx, "submission rejected as spam",
			slog.String("kind", string(fields.Kind)),
			slog.String("ip", client.IPAddress),
			pkglogger.EmailAttr(fields.Email),
		)
		return eval, activity, models.ErrSpamDetected
	}

	return eval, activity, nil
}

// recentActivity gathers the counts the heuristic needs. Counting failures
// degrade to zero.
func (s *SubmissionService) recentActivity(ctx context.Context, fields SubmissionFields, ip string, table SubmissionTable) RecentActivity {
	now := s.now()
	var activity RecentActivity

	activity.SameIPLastHour = s.sameIPCount(ctx, fields.Kind, ip, now.Add(-sameIPWindow), table)
	activity.SameEmailLastDay = s.count(ctx, table, models.RecentFilter{Email: fields.Email}, now.Add(-duplicateWindow))
	activity.SameContentLastDay = s.count(ctx, table, models.RecentFilter{Message: fields.Message}, now.Add(-duplicateWindow))

	return activity
}

func (s *SubmissionService) sameIPCount(ctx context.Context, kind models.SubmissionKind, ip string, since time.Time, table SubmissionTable) int {
	if ip == "" {
		return 0
	}
	if s.velocity != nil {
		n, err := s.velocity.CountSince(ctx, kind, ip, since)
		if err == nil {
			return n
		}
		s.logger.WarnContext(ctx, "velocity counter unavailable, counting in postgres", slog.Any("error", err))
	}
	return s.count(ctx, table, models.RecentFilter{IPAddress: ip}, since)
}

func (s *SubmissionService) count(ctx context.Context, table SubmissionTable, filter models.RecentFilter, since time.Time) int {
	n, err := table.CountRecent(ctx, filter, since)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to count recent submissions", slog.Any("error", err))
		return 0
	}
	return n
}

func (s *SubmissionService) meta(eval Evaluation, activity RecentActivity, client ClientInfo) models.SubmissionMeta {
	return models.SubmissionMeta{
		Priority:  eval.Priority,
		Status:    models.SubmissionNew,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		Metadata: models.SubmissionMetadata{
			Flags:             eval.Flags,
			RecentSubmissions: activity.SameIPLastHour,
		},
	}
}

func (s *SubmissionService) afterAccept(ctx context.Context, fields SubmissionFields, client ClientInfo, notice SubmissionNotice) {
	if s.velocity != nil && client.IPAddress != "" {
		if err := s.velocity.Record(ctx, fields.Kind, client.IPAddress, s.now()); err != nil {
			s.logger.WarnContext(ctx, "failed to record submission velocity", slog.Any("error", err))
		}
	}

	s.logger.InfoContext(ctx, "submission accepted",
		slog.String("kind", string(fields.Kind)),
		slog.String("id", notice.ID),
		slog.String("priority", string(notice.Priority)),
		slog.Any("flags", notice.Flags),
		pkglogger.EmailAttr(fields.Email),
	)

	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyNewSubmission(ctx, notice); err != nil {
		s.logger.ErrorContext(ctx, "failed to send submission notification",
			slog.String("id", notice.ID),
			slog.Any("error", err),
		)
	}
}

func discardResult(eval Evaluation) *SubmissionResult {
	if eval.Verdict != VerdictDiscard {
		return nil
	}
	return &SubmissionResult{Verdict: VerdictDiscard}
}

func (s *SubmissionService) ListInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, int, error) {
	list, err := s.inquiries.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list inquiries", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	total, err := s.inquiries.Count(ctx, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count inquiries", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return list, total, nil
}

func (s *SubmissionService) GetInquiry(ctx context.Context, id string) (*models.Inquiry, error) {
	inq, err := s.inquiries.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(ctx, "get inquiry", err)
	}
	return inq, nil
}

func (s *SubmissionService) ListDealershipInquiries(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, int, error) {
	list, err := s.dealerships.List(ctx, status, limit, offset)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list dealership inquiries", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	total, err := s.dealerships.Count(ctx, status)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to count dealership inquiries", slog.Any("error", err))
		return nil, 0, models.ErrInternalServer
	}
	return list, total, nil
}

func (s *SubmissionService) GetDealershipInquiry(ctx context.Context, id string) (*models.DealershipInquiry, error) {
	inq, err := s.dealerships.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(ctx, "get dealership inquiry", err)
	}
	return inq, nil
}

// UpdateSubmission applies an admin status and assignment change as one write. Status
// changes follow the forward-only workflow.
func (s *SubmissionService) UpdateSubmission(ctx context.Context, kind models.SubmissionKind, id string, update SubmissionUpdate) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}

	var change models.SubmissionChange
	switch {
	case update.Unassign:
		change.SetAssignee = true
	case update.AssignedTo != nil:
		change.SetAssignee, change.AssignedTo = true, update.AssignedTo
	}

	if update.Status != nil {
		next, err := models.ParseSubmissionStatus(string(*update.Status))
		if err != nil {
			return err
		}

		current, err := table.GetStatus(ctx, id)
		if err != nil {
			return s.storeError(ctx, "get submission status", err)
		}
		if !current.CanTransition(next) {
			return models.ErrInvalidStatusTransition
		}
		change.From, change.To = current, next
	}

	if change.To == "" && !change.SetAssignee {
		return nil
	}
	if err := table.Update(ctx, id, change); err != nil {
		return s.storeError(ctx, "update submission", err)
	}
	return nil
}

func (s *SubmissionService) DeleteSubmission(ctx context.Context, kind models.SubmissionKind, id string) error {
	table, err := s.table(kind)
	if err != nil {
		return err
	}
	if err := table.Delete(ctx, id); err != nil {
		return s.storeError(ctx, "delete submission", err)
	}

	s.logger.InfoContext(ctx, "submission deleted", slog.String("kind", string(kind)), slog.String("id", id))
	return nil
}

func (s *SubmissionService) table(kind models.SubmissionKind) (SubmissionTable, error) {
	switch kind {
	case models.SubmissionKindGeneral:
		return s.inquiries, nil
	case models.SubmissionKindDealership:
		return s.dealerships, nil
	default:
		return nil, models.ErrBadRequest
	}
}

// storeError passes through the errors handlers map to 4xx and hides the rest.
func (s *SubmissionService) storeError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrBadRequest):
		return err
	default:
		s.logger.ErrorContext(ctx, "submission store error", slog.String("op", op), slog.Any("error", err))
		return models.ErrInternalServer
	}
}
