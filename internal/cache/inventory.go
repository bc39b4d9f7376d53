package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	UserStatusKeyPrefix = "user:%s:status"
	BlacklistKeyPrefix  = "blacklist:%s"
)

const (
	UserStatusTTL = time.Minute
)

// UserStatusKey caches whether an account exists and is active.
func UserStatusKey(userID uuid.UUID) string {
	return fmt.Sprintf(UserStatusKeyPrefix, userID)
}

// BlacklistKey marks a revoked session token id.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uuid.UUID) {
	Invalidate(ctx, UserStatusKey(userID))
}

// RevokeToken blacklists a session token id until it would have expired anyway.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsRevoked reports whether jti was blacklisted. Lookup failures count as not revoked.
func IsRevoked(ctx context.Context, jti string) bool {
	if client == nil || jti == "" {
		return false
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	return err == nil && n > 0
}
