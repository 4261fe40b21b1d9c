// Package limiters holds the Redis-backed throttles available to the
// engine. Only the OTP resend guard exists today, and it is opt-in.
package limiters

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrResendThrottled    = errors.New("resend throttled")
	ErrLimiterUnavailable = errors.New("resend limiter unavailable")
)

// ResendConfig bounds how many codes one address may request per window.
type ResendConfig struct {
	Window       time.Duration
	MaxPerWindow int
}

// ResendLimiter enforces a fixed window per email address via INCR+EXPIRE.
type ResendLimiter struct {
	redis  redis.UniversalClient
	config ResendConfig
}

func NewResendLimiter(redisClient redis.UniversalClient, cfg ResendConfig) *ResendLimiter {
	return &ResendLimiter{redis: redisClient, config: cfg}
}

// Check counts this request against the address window. It returns
// ErrResendThrottled once the window limit is exceeded.
func (l *ResendLimiter) Check(ctx context.Context, email string) error {
	key := resendKey(email)

	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
	}
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.config.Window).Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrLimiterUnavailable, err)
		}
	}
	if count > int64(l.config.MaxPerWindow) {
		return ErrResendThrottled
	}
	return nil
}

func resendKey(email string) string {
	return "acrs:" + strings.ToLower(email)
}
