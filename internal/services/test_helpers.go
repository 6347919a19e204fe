package services

import (
	"context"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
)

// MockUserRepository implements UserRepository for testing
type MockUserRepository struct {
	GetByIDFunc        func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc     func(ctx context.Context, email string) (*models.User, error)
	ListFunc           func(ctx context.Context, limit, offset int) ([]*models.User, error)
	CountFunc          func(ctx context.Context) (int, error)
	CreateFunc         func(ctx context.Context, user *models.User) (*models.User, error)
	UpdateWithLockFunc func(ctx context.Context, id string, fn func(current *models.User) (*models.User, error)) (*models.User, error)
	UpdateMFAFunc      func(ctx context.Context, id string, enabled bool, secret, nonce []byte) error
	RotateTokenKeyFunc func(ctx context.Context, id string) error
	DeleteFunc         func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) UpdateWithLock(ctx context.Context, id string, fn func(current *models.User) (*models.User, error)) (*models.User, error) {
	if m.UpdateWithLockFunc != nil {
		return m.UpdateWithLockFunc(ctx, id, fn)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) UpdateMFA(ctx context.Context, id string, enabled bool, secret, nonce []byte) error {
	if m.UpdateMFAFunc != nil {
		return m.UpdateMFAFunc(ctx, id, enabled, secret, nonce)
	}
	return nil
}

func (m *MockUserRepository) RotateTokenKey(ctx context.Context, id string) error {
	if m.RotateTokenKeyFunc != nil {
		return m.RotateTokenKeyFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// lockingUsers returns a MockUserRepository backed by accounts whose
// UpdateWithLock runs fn against a copy and stores the result, like the
// Postgres implementation does inside its transaction.
func lockingUsers(accounts map[string]*models.User) *MockUserRepository {
	return &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			if u, ok := accounts[id]; ok {
				clone := *u
				return &clone, nil
			}
			return nil, models.ErrNotFound
		},
		UpdateWithLockFunc: func(ctx context.Context, id string, fn func(current *models.User) (*models.User, error)) (*models.User, error) {
			u, ok := accounts[id]
			if !ok {
				return nil, models.ErrNotFound
			}
			clone := *u
			next, err := fn(&clone)
			if err != nil {
				return nil, err
			}
			accounts[id] = next
			saved := *next
			return &saved, nil
		},
	}
}

// MockSuspensionAuditRepository implements SuspensionAuditRepository for testing
type MockSuspensionAuditRepository struct {
	AppendFunc       func(ctx context.Context, entry *models.SuspensionAuditEntry) (*models.SuspensionAuditEntry, error)
	ListByUserIDFunc func(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error)

	Appended []*models.SuspensionAuditEntry
}

func (m *MockSuspensionAuditRepository) Append(ctx context.Context, entry *models.SuspensionAuditEntry) (*models.SuspensionAuditEntry, error) {
	if m.AppendFunc != nil {
		return m.AppendFunc(ctx, entry)
	}
	m.Appended = append(m.Appended, entry)
	return entry, nil
}

func (m *MockSuspensionAuditRepository) ListByUserID(ctx context.Context, userID string, limit, offset int) ([]*models.SuspensionAuditEntry, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID, limit, offset)
	}
	return []*models.SuspensionAuditEntry{}, nil
}

// MockTokenRevocationRepository implements TokenRevocationRepository for testing
type MockTokenRevocationRepository struct {
	RevokeTokenFunc    func(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error
	IsTokenRevokedFunc func(ctx context.Context, jti string) (bool, error)

	Revoked []string
}

func (m *MockTokenRevocationRepository) RevokeToken(ctx context.Context, jti, userID, tokenType string, expiresAt time.Time, reason string) error {
	if m.RevokeTokenFunc != nil {
		return m.RevokeTokenFunc(ctx, jti, userID, tokenType, expiresAt, reason)
	}
	m.Revoked = append(m.Revoked, jti)
	return nil
}

func (m *MockTokenRevocationRepository) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if m.IsTokenRevokedFunc != nil {
		return m.IsTokenRevokedFunc(ctx, jti)
	}
	for _, r := range m.Revoked {
		if r == jti {
			return true, nil
		}
	}
	return false, nil
}

// MockSubmissionTable implements SubmissionTable for testing
type MockSubmissionTable struct {
	CountRecentFunc func(ctx context.Context, filter models.RecentFilter, since time.Time) (int, error)
	GetStatusFunc   func(ctx context.Context, id string) (models.SubmissionStatus, error)
	UpdateFunc      func(ctx context.Context, id string, change models.SubmissionChange) error
	CountFunc       func(ctx context.Context, status models.SubmissionStatus) (int, error)
	DeleteFunc      func(ctx context.Context, id string) error
}

func (m *MockSubmissionTable) CountRecent(ctx context.Context, filter models.RecentFilter, since time.Time) (int, error) {
	if m.CountRecentFunc != nil {
		return m.CountRecentFunc(ctx, filter, since)
	}
	return 0, nil
}

func (m *MockSubmissionTable) GetStatus(ctx context.Context, id string) (models.SubmissionStatus, error) {
	if m.GetStatusFunc != nil {
		return m.GetStatusFunc(ctx, id)
	}
	return "", models.ErrNotFound
}

func (m *MockSubmissionTable) Update(ctx context.Context, id string, change models.SubmissionChange) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, change)
	}
	return nil
}

func (m *MockSubmissionTable) Count(ctx context.Context, status models.SubmissionStatus) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, status)
	}
	return 0, nil
}

func (m *MockSubmissionTable) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockInquiryStore implements InquiryStore for testing. Created records every
// inquiry passed to Create.
type MockInquiryStore struct {
	MockSubmissionTable
	CreateFunc  func(ctx context.Context, inq *models.Inquiry) (*models.Inquiry, error)
	GetByIDFunc func(ctx context.Context, id string) (*models.Inquiry, error)
	ListFunc    func(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, error)

	Created []*models.Inquiry
}

func (m *MockInquiryStore) Create(ctx context.Context, inq *models.Inquiry) (*models.Inquiry, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, inq)
	}
	inq.ID = "inq-1"
	m.Created = append(m.Created, inq)
	return inq, nil
}

func (m *MockInquiryStore) GetByID(ctx context.Context, id string) (*models.Inquiry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockInquiryStore) List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.Inquiry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit, offset)
	}
	return []*models.Inquiry{}, nil
}

// MockDealershipInquiryStore implements DealershipInquiryStore for testing
type MockDealershipInquiryStore struct {
	MockSubmissionTable
	CreateFunc  func(ctx context.Context, inq *models.DealershipInquiry) (*models.DealershipInquiry, error)
	GetByIDFunc func(ctx context.Context, id string) (*models.DealershipInquiry, error)
	ListFunc    func(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, error)

	Created []*models.DealershipInquiry
}

func (m *MockDealershipInquiryStore) Create(ctx context.Context, inq *models.DealershipInquiry) (*models.DealershipInquiry, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, inq)
	}
	inq.ID = "dealer-1"
	m.Created = append(m.Created, inq)
	return inq, nil
}

func (m *MockDealershipInquiryStore) GetByID(ctx context.Context, id string) (*models.DealershipInquiry, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockDealershipInquiryStore) List(ctx context.Context, status models.SubmissionStatus, limit, offset int) ([]*models.DealershipInquiry, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, status, limit, offset)
	}
	return []*models.DealershipInquiry{}, nil
}

// MockVelocityCounter implements VelocityCounter for testing
type MockVelocityCounter struct {
	RecordFunc     func(ctx context.Context, kind models.SubmissionKind, ip string, at time.Time) error
	CountSinceFunc func(ctx context.Context, kind models.SubmissionKind, ip string, since time.Time) (int, error)

	Recorded int
}

func (m *MockVelocityCounter) Record(ctx context.Context, kind models.SubmissionKind, ip string, at time.Time) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, kind, ip, at)
	}
	m.Recorded++
	return nil
}

func (m *MockVelocityCounter) CountSince(ctx context.Context, kind models.SubmissionKind, ip string, since time.Time) (int, error) {
	if m.CountSinceFunc != nil {
		return m.CountSinceFunc(ctx, kind, ip, since)
	}
	return 0, nil
}

// MockNotifier implements Notifier for testing
type MockNotifier struct {
	NotifyFunc func(ctx context.Context, notice SubmissionNotice) error

	Notices []SubmissionNotice
}

func (m *MockNotifier) NotifyNewSubmission(ctx context.Context, notice SubmissionNotice) error {
	m.Notices = append(m.Notices, notice)
	if m.NotifyFunc != nil {
		return m.NotifyFunc(ctx, notice)
	}
	return nil
}

// NewTestUser creates an active account with the user role
func NewTestUser(id, email, name string) *models.User {
	now := time.Now()
	return &models.User{
		ID:        id,
		Email:     email,
		Name:      name,
		TokenKey:  "token-key-" + id,
		Status:    models.StatusActive,
		Role:      models.RoleUser,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAdmin creates an active admin account
func NewTestAdmin(id, email string) *models.User {
	user := NewTestUser(id, email, "Admin "+id)
	user.Role = models.RoleAdmin
	return user
}

// NewTestUserWithPassword creates a user with hashed password
func NewTestUserWithPassword(id, email, name, passwordHash string) *models.User {
	user := NewTestUser(id, email, name)
	user.PasswordHash = passwordHash
	return user
}

// NewTestBlockedUser creates a blocked account; a nil until means indefinitely
func NewTestBlockedUser(id string, blockedAt time.Time, until *time.Time) *models.User {
	user := NewTestUser(id, id+"@example.com", "Blocked "+id)
	user.Status = models.StatusBlocked
	user.BlockedAt = &blockedAt
	if until != nil {
		u := *until
		user.BlockedUntil = &u
	}
	return user
}
