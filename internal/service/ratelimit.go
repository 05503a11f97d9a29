package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"ratestuff.app/backend/pkg/apperror"
)

// CheckAndSetRateLimit is the per-action posting limiter (one comment per
// RATE_LIMIT_COMMENT window etc). It is separate from the notification
// write quota, which is recomputed from persisted rows in
// notificationService.underQuota.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string, limit time.Duration) (bool, error) {
	if rdb == nil {
		return true, nil
	}

	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)

	wasSet, err := rdb.SetNX(ctx, key, "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	return rdb.TTL(ctx, key).Result()
}

// ClearRateLimit releases the SetNX lock early. Called when the guarded
// action fails after the lock was taken, so a failed attempt does not burn
// the user's cooldown.
func ClearRateLimit(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) error {
	if rdb == nil {
		return nil
	}
	key := fmt.Sprintf("rate_limit:user:%s:%s", userID.String(), action)
	_, err := rdb.Del(ctx, key).Result()
	return err
}

// RateLimitRetryError builds the 429 for a denied action, including the
// remaining wait when the TTL is known.
func RateLimitRetryError(ctx context.Context, rdb *redis.Client, userID uuid.UUID, action string) error {
	ttl, err := GetRateLimitTTL(ctx, rdb, userID, action)
	if err != nil || ttl <= 0 {
		return apperror.ErrRateLimitExceeded
	}
	return retryAfterError(action, ttl)
}

func retryAfterError(action string, ttl time.Duration) error {
	return apperror.New(http.StatusTooManyRequests,
		fmt.Sprintf("please wait %s before your next %s", ttl.Round(time.Second), action),
		apperror.ErrRateLimitExceeded)
}
