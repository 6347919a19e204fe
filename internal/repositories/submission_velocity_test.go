package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestSubmissionVelocity_CountsWithinWindow(t *testing.T) {
	client, _ := setupTestRedis(t)
	v := NewSubmissionVelocity(client, time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, v.Record(ctx, models.SubmissionKindGeneral, "203.0.113.7", now.Add(-time.Duration(i)*time.Minute)))
	}
	require.NoError(t, v.Record(ctx, models.SubmissionKindGeneral, "198.51.100.1", now))

	n, err := v.CountSince(ctx, models.SubmissionKindGeneral, "203.0.113.7", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 5, n)

	n, err = v.CountSince(ctx, models.SubmissionKindGeneral, "203.0.113.7", now.Add(-150*time.Second))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSubmissionVelocity_KindsAreSeparate(t *testing.T) {
	client, _ := setupTestRedis(t)
	v := NewSubmissionVelocity(client, time.Hour)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, v.Record(ctx, models.SubmissionKindDealership, "203.0.113.7", now))

	n, err := v.CountSince(ctx, models.SubmissionKindGeneral, "203.0.113.7", now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestSubmissionVelocity_TrimsOldEntries(t *testing.T) {
	client, mr := setupTestRedis(t)
	v := NewSubmissionVelocity(client, time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, v.Record(ctx, models.SubmissionKindGeneral, "203.0.113.7", now.Add(-3*time.Hour)))
	require.NoError(t, v.Record(ctx, models.SubmissionKindGeneral, "203.0.113.7", now))

	members, err := mr.ZMembers(velocityKey(models.SubmissionKindGeneral, "203.0.113.7"))
	require.NoError(t, err)
	assert.Len(t, members, 1)
	assert.Greater(t, mr.TTL(velocityKey(models.SubmissionKindGeneral, "203.0.113.7")), time.Duration(0))
}

func TestSubmissionVelocity_ErrorWhenRedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	v := NewSubmissionVelocity(client, time.Hour)
	mr.Close()

	_, err := v.CountSince(context.Background(), models.SubmissionKindGeneral, "203.0.113.7", time.Now().Add(-time.Hour))
	assert.Error(t, err)
}
