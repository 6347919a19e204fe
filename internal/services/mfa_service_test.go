package services

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/auth"
	"github.com/BradenHooton/showroom/internal/models"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMFAKey = []byte("0123456789abcdef0123456789abcdef")

func newTestTOTP(t *testing.T) *auth.TOTPManager {
	t.Helper()
	tm, err := auth.NewTOTPManager(testMFAKey, "Showroom Admin")
	require.NoError(t, err)
	return tm
}

// enrolledAdmin runs Setup and returns the admin carrying the stored secret
// together with the plain base32 secret.
func enrolledAdmin(t *testing.T, svc *MFAService, users *MockUserRepository) (*models.User, string) {
	t.Helper()
	admin := NewTestAdmin("admin-1", "admin@example.com")

	users.UpdateMFAFunc = func(ctx context.Context, id string, enabled bool, secret, nonce []byte) error {
		admin.MFAEnabled = enabled
		admin.MFASecret = secret
		admin.MFANonce = nonce
		return nil
	}

	setup, err := svc.Setup(context.Background(), admin)
	require.NoError(t, err)
	require.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCode, "data:image/png;base64,")
	assert.False(t, admin.MFAEnabled)
	require.NotEmpty(t, admin.MFASecret)

	return admin, setup.Secret
}

func TestMFAService_SetupAndEnable(t *testing.T) {
	users := &MockUserRepository{}
	svc := NewMFAService(users, newTestTOTP(t), discardLogger())
	svc.now = func() time.Time { return engineNow }

	admin, secret := enrolledAdmin(t, svc, users)

	assert.ErrorIs(t, svc.Enable(context.Background(), admin, "000000"), models.ErrInvalidMFACode)
	assert.False(t, admin.MFAEnabled)

	code, err := totp.GenerateCode(secret, engineNow)
	require.NoError(t, err)
	require.NoError(t, svc.Enable(context.Background(), admin, code))
	assert.True(t, admin.MFAEnabled)

	_, err = svc.Setup(context.Background(), admin)
	assert.ErrorIs(t, err, models.ErrConflict)
}

func TestMFAService_Verify(t *testing.T) {
	users := &MockUserRepository{}
	svc := NewMFAService(users, newTestTOTP(t), discardLogger())
	svc.now = func() time.Time { return engineNow }
	admin, secret := enrolledAdmin(t, svc, users)

	assert.ErrorIs(t, svc.Verify(context.Background(), admin, ""), models.ErrMFARequired)

	stale, err := totp.GenerateCode(secret, engineNow.Add(-5*time.Minute))
	require.NoError(t, err)
	assert.ErrorIs(t, svc.Verify(context.Background(), admin, stale), models.ErrInvalidMFACode)

	drift, err := totp.GenerateCode(secret, engineNow.Add(-30*time.Second))
	require.NoError(t, err)
	assert.NoError(t, svc.Verify(context.Background(), admin, drift))
}

func TestMFAService_Unavailable(t *testing.T) {
	svc := NewMFAService(&MockUserRepository{}, nil, discardLogger())

	_, err := svc.Setup(context.Background(), NewTestAdmin("admin-1", "admin@example.com"))
	assert.ErrorIs(t, err, ErrMFAUnavailable)
}

func TestMFAService_EnableWithoutSetup(t *testing.T) {
	svc := NewMFAService(&MockUserRepository{}, newTestTOTP(t), discardLogger())

	err := svc.Enable(context.Background(), NewTestAdmin("admin-1", "admin@example.com"), "123456")
	assert.ErrorIs(t, err, models.ErrBadRequest)
}
