//go:build integration

package repositories

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/database"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/BradenHooton/showroom/migrations"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

var testDB *database.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("showroom"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		log.Fatalf("failed to start postgres container: %v", err)
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		log.Fatalf("failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	goose.SetLogger(log.New(os.Stderr, "", 0))
	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		log.Fatalf("failed to set dialect: %v", err)
	}
	sqlDB := stdlib.OpenDB(*pool.Config().ConnConfig)
	if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	sqlDB.Close()

	testDB = database.Wrap(pool, slog.Default())

	code := m.Run()

	pool.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func truncateAll(t *testing.T) {
	t.Helper()
	_, err := testDB.Pool.Exec(context.Background(),
		`TRUNCATE suspension_audit_entries, inquiries, dealership_inquiries, revoked_tokens, users CASCADE`)
	require.NoError(t, err)
}

func seedUser(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	user, err := NewUserRepository(testDB).Create(context.Background(), &models.User{
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderpla",
		Name:         "Seeded",
		Role:         role,
	})
	require.NoError(t, err)
	return user
}

func TestUserRepository_CreateAndGet(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewUserRepository(testDB)

	created := seedUser(t, "Sales@Example.com", models.RoleUser)
	assert.Equal(t, models.StatusActive, created.Status)
	assert.NotEmpty(t, created.TokenKey)

	byEmail, err := repo.GetByEmail(ctx, "sales@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, byEmail.ID)

	_, err = repo.GetByID(ctx, "not-a-uuid")
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = repo.Create(ctx, &models.User{Email: "Sales@Example.com", PasswordHash: "x", Name: "Dup"})
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestUserRepository_UpdateWithLock(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	user := seedUser(t, "lock@example.com", models.RoleUser)

	now := time.Now().UTC().Truncate(time.Microsecond)
	until := now.Add(time.Hour)
	saved, err := repo.UpdateWithLock(ctx, user.ID, func(current *models.User) (*models.User, error) {
		current.Status = models.StatusBlocked
		current.BlockedAt = &now
		current.BlockedUntil = &until
		current.AdminNotes = "chargeback"
		return current, nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusBlocked, saved.Status)
	assert.True(t, until.Equal(*saved.BlockedUntil))

	_, err = repo.UpdateWithLock(ctx, user.ID, func(current *models.User) (*models.User, error) {
		return nil, models.ErrSelfBlock
	})
	assert.ErrorIs(t, err, models.ErrSelfBlock)

	// blocked_at without blocked status violates the table check
	_, err = repo.UpdateWithLock(ctx, user.ID, func(current *models.User) (*models.User, error) {
		current.Status = models.StatusActive
		return current, nil
	})
	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestUserRepository_UpdateWithLockSerializes(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewUserRepository(testDB)
	user := seedUser(t, "race@example.com", models.RoleUser)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.UpdateWithLock(ctx, user.ID, func(current *models.User) (*models.User, error) {
				current.AdminNotes += "x"
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	final, err := repo.GetByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "xxxxxxxxxx", final.AdminNotes)
}

func TestSuspensionAuditRepository_AppendAndList(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewSuspensionAuditRepository(testDB)
	admin := seedUser(t, "admin@example.com", models.RoleAdmin)
	user := seedUser(t, "user@example.com", models.RoleUser)

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, action := range []models.SuspensionAction{models.SuspensionActionBlock, models.SuspensionActionExtend, models.SuspensionActionUnblock} {
		_, err := repo.Append(ctx, &models.SuspensionAuditEntry{
			UserID:    user.ID,
			ActorID:   admin.ID,
			Action:    action,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	entries, err := repo.ListByUserID(ctx, user.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, models.SuspensionActionUnblock, entries[0].Action)
	assert.Equal(t, models.SuspensionActionBlock, entries[2].Action)
	assert.Equal(t, admin.ID, entries[0].ActorID)
}

func TestSuspensionAuditRepository_EntriesSurviveAccountDeletion(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	users := NewUserRepository(testDB)
	audit := NewSuspensionAuditRepository(testDB)
	admin := seedUser(t, "admin@example.com", models.RoleAdmin)
	blocked := seedUser(t, "blocked@example.com", models.RoleUser)

	_, err := audit.Append(ctx, &models.SuspensionAuditEntry{
		UserID:    blocked.ID,
		ActorID:   admin.ID,
		Action:    models.SuspensionActionBlock,
		CreatedAt: time.Now().UTC(),
	})
	require.NoError(t, err)

	require.NoError(t, users.Delete(ctx, blocked.ID))
	require.NoError(t, users.Delete(ctx, admin.ID))

	entries, err := audit.ListByUserID(ctx, blocked.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.SuspensionActionBlock, entries[0].Action)
	assert.Equal(t, admin.ID, entries[0].ActorID)
}

func TestInquiryRepository_CreateCountAndStatus(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewInquiryRepository(testDB)

	message := "We would like a quote for twelve vehicles."
	for i := 0; i < 3; i++ {
		_, err := repo.Create(ctx, &models.Inquiry{
			SubmissionMeta: models.SubmissionMeta{
				Priority:  models.PriorityHigh,
				IPAddress: "203.0.113.7",
				Metadata:  models.SubmissionMetadata{Flags: []models.SubmissionFlag{models.FlagDuplicateEmail}, RecentSubmissions: i},
			},
			Name:    "Jordan Buyer",
			Email:   "buyer@example.com",
			Subject: "Partnership",
			Message: message,
		})
		require.NoError(t, err)
	}

	since := time.Now().Add(-time.Hour)
	n, err := repo.CountRecent(ctx, models.RecentFilter{IPAddress: "203.0.113.7"}, since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountRecent(ctx, models.RecentFilter{Email: "BUYER@example.com"}, since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.CountRecent(ctx, models.RecentFilter{Message: message}, since)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := repo.List(ctx, models.SubmissionNew, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []models.SubmissionFlag{models.FlagDuplicateEmail}, list[0].Metadata.Flags)
	assert.Equal(t, models.PriorityHigh, list[0].Priority)

	total, err := repo.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	id := list[0].ID
	require.NoError(t, repo.Update(ctx, id, models.SubmissionChange{From: models.SubmissionNew, To: models.SubmissionInProgress}))
	err = repo.Update(ctx, id, models.SubmissionChange{From: models.SubmissionNew, To: models.SubmissionResolved})
	assert.True(t, errors.Is(err, models.ErrConflict))

	total, err = repo.Count(ctx, models.SubmissionNew)
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	open, err := repo.CountOpenByPriority(ctx, models.PriorityHigh)
	require.NoError(t, err)
	assert.Equal(t, 3, open)

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), models.ErrNotFound)
}

func TestDealershipInquiryRepository_Create(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewDealershipInquiryRepository(testDB)
	admin := seedUser(t, "admin@example.com", models.RoleAdmin)

	created, err := repo.Create(ctx, &models.DealershipInquiry{
		SubmissionMeta: models.SubmissionMeta{Priority: models.PriorityUrgent, IPAddress: "198.51.100.4"},
		CompanyName:    "Northside Motors",
		ContactName:    "Riley Dealer",
		Email:          "riley@northside.example",
		MonthlyVolume:  "25000",
		Message:        "Interested in carrying your full line.",
	})
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionNew, created.Status)
	assert.Empty(t, created.Metadata.Flags)

	require.NoError(t, repo.Update(ctx, created.ID, models.SubmissionChange{SetAssignee: true, AssignedTo: &admin.ID}))
	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, got.AssignedTo)
	assert.Equal(t, admin.ID, *got.AssignedTo)
	assert.Equal(t, models.SubmissionNew, got.Status)

	// A stale status guard rejects the whole write, assignment included.
	err = repo.Update(ctx, created.ID, models.SubmissionChange{
		From:        models.SubmissionInProgress,
		To:          models.SubmissionResolved,
		SetAssignee: true,
	})
	assert.ErrorIs(t, err, models.ErrConflict)
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionNew, got.Status)
	require.NotNil(t, got.AssignedTo)

	require.NoError(t, repo.Update(ctx, created.ID, models.SubmissionChange{
		From:        models.SubmissionNew,
		To:          models.SubmissionInProgress,
		SetAssignee: true,
	}))
	got, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SubmissionInProgress, got.Status)
	assert.Nil(t, got.AssignedTo)

	assert.ErrorIs(t, repo.Update(ctx, "00000000-0000-0000-0000-000000000000", models.SubmissionChange{SetAssignee: true}), models.ErrNotFound)

	n, err := repo.CountCreatedSince(ctx, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestTokenRevocationRepository(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	repo := NewTokenRevocationRepository(testDB)
	user := seedUser(t, "tokens@example.com", models.RoleUser)

	require.NoError(t, repo.RevokeToken(ctx, "jti-live", user.ID, "access", time.Now().Add(time.Hour), "logout"))
	require.NoError(t, repo.RevokeToken(ctx, "jti-live", user.ID, "access", time.Now().Add(time.Hour), "logout"))
	require.NoError(t, repo.RevokeToken(ctx, "jti-old", user.ID, "refresh", time.Now().Add(-time.Hour), "logout"))

	revoked, err := repo.IsTokenRevoked(ctx, "jti-live")
	require.NoError(t, err)
	assert.True(t, revoked)

	removed, err := repo.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func TestUserRepository_CountByStatusAndRole(t *testing.T) {
	truncateAll(t)
	seedUser(t, "a@example.com", models.RoleAdmin)
	seedUser(t, "b@example.com", models.RoleUser)
	seedUser(t, "c@example.com", models.RoleUser)

	byStatus, byRole, err := NewUserRepository(testDB).CountByStatusAndRole(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, byStatus[models.StatusActive])
	assert.Equal(t, 1, byRole[models.RoleAdmin])
	assert.Equal(t, 2, byRole[models.RoleUser])
}

func TestUserRepository_CountIgnoresPaging(t *testing.T) {
	truncateAll(t)
	ctx := context.Background()
	seedUser(t, "a@example.com", models.RoleAdmin)
	seedUser(t, "b@example.com", models.RoleUser)
	seedUser(t, "c@example.com", models.RoleUser)
	repo := NewUserRepository(testDB)

	page, err := repo.List(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page, 1)

	total, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
}
