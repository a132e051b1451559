package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rankreport/rankreport-backend/internal/common"
	"github.com/rankreport/rankreport-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RateLimitConfig configures the rate limiter
type RateLimitConfig struct {
	RequestsPerMinute int
	KeyPrefix         string
	Message           string
}

// DefaultRateLimitConfig is the per-IP limit applied to the whole API
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerMinute: 120,
		KeyPrefix:         "api:ratelimit:",
		Message:           "Too many requests. Please try again shortly.",
	}
}

// slidingWindow keeps one sorted-set member per admitted request.
// ARGV: limit, window ms, now ms, unique member.
var slidingWindow = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', tonumber(ARGV[3]) - tonumber(ARGV[2]))
local used = redis.call('ZCARD', KEYS[1])
if used >= tonumber(ARGV[1]) then
    local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
    return {0, 0, tonumber(oldest[2] or ARGV[3]) + tonumber(ARGV[2])}
end
redis.call('ZADD', KEYS[1], ARGV[3], ARGV[4])
redis.call('PEXPIRE', KEYS[1], ARGV[2])
return {1, tonumber(ARGV[1]) - used - 1, 0}
`)

// Decision is the outcome of one limiter check
type Decision struct {
	Allowed   bool
	Remaining int64
	ResetAt   time.Time
}

// Limiter is a Redis sliding-window limiter over a one minute window
type Limiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewLimiter creates a Limiter admitting perMinute requests per key
func NewLimiter(client *redis.Client, perMinute int) *Limiter {
	return &Limiter{client: client, limit: perMinute, window: time.Minute}
}

// Allow records one request for key if the window has room
func (l *Limiter) Allow(ctx context.Context, key string, now time.Time) (Decision, error) {
	res, err := slidingWindow.Run(ctx, l.client, []string{key},
		l.limit, l.window.Milliseconds(), now.UnixMilli(), uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return Decision{}, err
	}
	return decisionFrom(res), nil
}

func decisionFrom(res []int64) Decision {
	d := Decision{Allowed: len(res) > 0 && res[0] == 1}
	if len(res) > 1 {
		d.Remaining = res[1]
	}
	if len(res) > 2 && res[2] > 0 {
		d.ResetAt = time.UnixMilli(res[2])
	}
	return d
}

// RateLimit limits by client IP
func RateLimit(redisClient *redis.Client, cfg RateLimitConfig) gin.HandlerFunc {
	return rateLimit(redisClient, cfg, func(c *gin.Context) string {
		return c.ClientIP()
	})
}

// RateLimitPerUser limits by authenticated user, falling back to IP.
// Report creation uses it since each report costs Google API calls downstream.
func RateLimitPerUser(redisClient *redis.Client, keyPrefix string, requestsPerMinute int) gin.HandlerFunc {
	cfg := RateLimitConfig{
		RequestsPerMinute: requestsPerMinute,
		KeyPrefix:         keyPrefix,
		Message:           "Too many report requests. Please wait a minute and try again.",
	}
	return rateLimit(redisClient, cfg, func(c *gin.Context) string {
		if userID := GetUserID(c); userID != "" {
			return userID
		}
		return "ip:" + c.ClientIP()
	})
}

func rateLimit(redisClient *redis.Client, cfg RateLimitConfig, keyFn func(*gin.Context) string) gin.HandlerFunc {
	if redisClient == nil || cfg.RequestsPerMinute <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	limiter := NewLimiter(redisClient, cfg.RequestsPerMinute)

	return func(c *gin.Context) {
		key := cfg.KeyPrefix + keyFn(c)
		now := time.Now()

		d, err := limiter.Allow(c.Request.Context(), key, now)
		if err != nil {
			// fail open: Redis trouble must not take the API down
			logger.GetLogger().Warn().Err(err).Str("key", key).Msg("rate limit check failed")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RequestsPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
		if d.Allowed {
			c.Next()
			return
		}

		retryAfter := int64(d.ResetAt.Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
		common.ErrorResponse(c, http.StatusTooManyRequests, cfg.Message, nil)
		c.Abort()
	}
}
