package auth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const loginFailKeyPrefix = "login_fail:"

// LoginLimiter locks out staff logins after repeated wrong passwords.
type LoginLimiter struct {
	Client      *redis.Client
	MaxAttempts int
	Lockout     time.Duration
}

func NewLoginLimiter(client *redis.Client, maxAttempts int, lockout time.Duration) *LoginLimiter {
	return &LoginLimiter{Client: client, MaxAttempts: maxAttempts, Lockout: lockout}
}

func loginKey(email string) string {
	return loginFailKeyPrefix + strings.ToLower(strings.TrimSpace(email))
}

// Allowed reports whether another attempt may be made and, if not, how long to wait.
func (l *LoginLimiter) Allowed(ctx context.Context, email string) (bool, time.Duration, error) {
	key := loginKey(email)
	count, err := l.Client.Get(ctx, key).Int()
	if err == redis.Nil {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, fmt.Errorf("failed to read login attempts: %w", err)
	}
	if count < l.MaxAttempts {
		return true, 0, nil
	}
	ttl, err := l.Client.TTL(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to read lockout: %w", err)
	}
	return false, ttl, nil
}

// Fail records a failed attempt. Reaching MaxAttempts restarts the lockout window.
func (l *LoginLimiter) Fail(ctx context.Context, email string) (int, error) {
	key := loginKey(email)
	count, err := l.Client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to record login attempt: %w", err)
	}
	if count == 1 || int(count) >= l.MaxAttempts {
		if err := l.Client.Expire(ctx, key, l.Lockout).Err(); err != nil {
			return int(count), fmt.Errorf("failed to set lockout: %w", err)
		}
	}
	return int(count), nil
}

func (l *LoginLimiter) Reset(ctx context.Context, email string) error {
	return l.Client.Del(ctx, loginKey(email)).Err()
}

// CheckStaffPassword compares in constant time. An unset expected password never matches.
func CheckStaffPassword(expected, given string) bool {
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(given)) == 1
}
