package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
)

// AccountCounter is the subset of UserRepository needed by DashboardService.
type AccountCounter interface {
	CountByStatusAndRole(ctx context.Context) (map[models.AccountStatus]int, map[models.Role]int, error)
}

// SubmissionCounter is the subset of a submission store needed by DashboardService.
type SubmissionCounter interface {
	CountCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountOpenByPriority(ctx context.Context, priority models.Priority) (int, error)
}

// DashboardStats contains aggregate admin metrics.
type DashboardStats struct {
	TotalAccounts     int                          `json:"total_accounts"`
	AccountsByStatus  map[models.AccountStatus]int `json:"accounts_by_status"`
	AccountsByRole    map[models.Role]int          `json:"accounts_by_role"`
	InquiriesToday    int                          `json:"inquiries_today"`
	DealershipToday   int                          `json:"dealership_inquiries_today"`
	OpenUrgent        int                          `json:"open_urgent_inquiries"`
	OpenUrgentDealers int                          `json:"open_urgent_dealership_inquiries"`
}

// DashboardService aggregates data for the admin dashboard.
type DashboardService struct {
	accounts    AccountCounter
	inquiries   SubmissionCounter
	dealerships SubmissionCounter
	logger      *slog.Logger
	now         func() time.Time
}

func NewDashboardService(accounts AccountCounter, inquiries, dealerships SubmissionCounter, logger *slog.Logger) *DashboardService {
	return &DashboardService{
		accounts:    accounts,
		inquiries:   inquiries,
		dealerships: dealerships,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *DashboardService) GetStats(ctx context.Context) (*DashboardStats, error) {
	byStatus, byRole, err := s.accounts.CountByStatusAndRole(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	// every status and role is reported, zero counts included
	stats := &DashboardStats{
		AccountsByStatus: make(map[models.AccountStatus]int),
		AccountsByRole:   map[models.Role]int{models.RoleAdmin: byRole[models.RoleAdmin], models.RoleUser: byRole[models.RoleUser]},
	}
	for _, status := range []models.AccountStatus{models.StatusActive, models.StatusInactive, models.StatusPending, models.StatusBlocked} {
		stats.AccountsByStatus[status] = byStatus[status]
		stats.TotalAccounts += byStatus[status]
	}

	today := s.now().UTC().Truncate(24 * time.Hour)

	if stats.InquiriesToday, err = s.inquiries.CountCreatedSince(ctx, today); err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count inquiries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.DealershipToday, err = s.dealerships.CountCreatedSince(ctx, today); err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count dealership inquiries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.OpenUrgent, err = s.inquiries.CountOpenByPriority(ctx, models.PriorityUrgent); err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count urgent inquiries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}
	if stats.OpenUrgentDealers, err = s.dealerships.CountOpenByPriority(ctx, models.PriorityUrgent); err != nil {
		s.logger.ErrorContext(ctx, "dashboard: failed to count urgent dealership inquiries", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return stats, nil
}
