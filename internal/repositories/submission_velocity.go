package repositories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/BradenHooton/showroom/internal/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const velocityKeyPrefix = "showroom:submissions:ip"

// SubmissionVelocity keeps a sorted set of submission timestamps per kind and IP.
type SubmissionVelocity struct {
	client *redis.Client
	window time.Duration
}

func NewSubmissionVelocity(client *redis.Client, window time.Duration) *SubmissionVelocity {
	return &SubmissionVelocity{client: client, window: window}
}

func velocityKey(kind models.SubmissionKind, ip string) string {
	return fmt.Sprintf("%s:%s:%s", velocityKeyPrefix, kind, ip)
}

// Record adds one submission at the given time and trims entries outside the window.
func (v *SubmissionVelocity) Record(ctx context.Context, kind models.SubmissionKind, ip string, at time.Time) error {
	key := velocityKey(kind, ip)
	cutoff := at.Add(-v.window).UnixMilli()

	_, err := v.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
		pipe.ZRemRangeByScore(ctx, key, "-inf", "("+strconv.FormatInt(cutoff, 10))
		pipe.Expire(ctx, key, v.window)
		return nil
	})
	if err != nil {
		return fmt.Errorf("record submission velocity: %w", err)
	}
	return nil
}

// CountSince counts recorded submissions at or after since.
func (v *SubmissionVelocity) CountSince(ctx context.Context, kind models.SubmissionKind, ip string, since time.Time) (int, error) {
	n, err := v.client.ZCount(ctx, velocityKey(kind, ip), strconv.FormatInt(since.UnixMilli(), 10), "+inf").Result()
	if err != nil {
		return 0, fmt.Errorf("count submission velocity: %w", err)
	}
	return int(n), nil
}
