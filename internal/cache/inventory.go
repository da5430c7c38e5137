package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	UserRolesKeyPrefix = "roles:user:%d"
	BlacklistKeyPrefix = "blacklist:%s"
)

const (
	UserRolesTTL = 5 * time.Minute
)

// ErrNoClient is returned by operations that need Redis when none is configured.
var ErrNoClient = errors.New("redis client not configured")

func UserRolesKey(userID uint) string {
	return fmt.Sprintf(UserRolesKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func InvalidateUserRoles(ctx context.Context, userID uint) {
	Invalidate(ctx, UserRolesKey(userID))
}

// BlacklistToken revokes a token id until ttl elapses.
func BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil {
		return ErrNoClient
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsBlacklisted reports whether the token id was revoked. Without Redis no
// token can be revoked, so the answer is false.
func IsBlacklisted(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
