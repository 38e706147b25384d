package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitConfig defines configuration for rate limiting
type RateLimitConfig struct {
	// Window is the time window for rate limiting
	Window time.Duration
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Key prefix for Redis keys
	KeyPrefix string
}

// RateLimitResult describes a key's standing after a check.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	// Allow counts a request for key.
	Allow(ctx context.Context, key string) (RateLimitResult, error)
	// Peek reports the key's standing without counting a request.
	Peek(ctx context.Context, key string) (RateLimitResult, error)
}

// NewLimiter returns a Redis-backed limiter shared by every instance, or an
// in-process one when redisClient is nil.
func NewLimiter(redisClient *redis.Client, config RateLimitConfig) Limiter {
	if redisClient != nil {
		return NewRedisLimiter(redisClient, config)
	}
	return NewLocalLimiter(config)
}

// NewRecipeCreationConfig limits recipe creation to limit per window and user.
func NewRecipeCreationConfig(limit int, window time.Duration) RateLimitConfig {
	return RateLimitConfig{
		Window:    window,
		Limit:     limit,
		KeyPrefix: "rate_limit:recipe_creation",
	}
}

// RedisLimiter counts requests per fixed window in Redis.
type RedisLimiter struct {
	redis  *redis.Client
	config RateLimitConfig
	now    func() time.Time
}

func NewRedisLimiter(redisClient *redis.Client, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{redis: redisClient, config: config, now: time.Now}
}

func (rl *RedisLimiter) windowKey(key string) (string, time.Time) {
	windowStart := rl.now().Truncate(rl.config.Window)
	return fmt.Sprintf("%s:%s:%d", rl.config.KeyPrefix, key, windowStart.Unix()),
		windowStart.Add(rl.config.Window)
}

func (rl *RedisLimiter) result(count int, reset time.Time) RateLimitResult {
	remaining := rl.config.Limit - count
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{
		Allowed:   count <= rl.config.Limit,
		Limit:     rl.config.Limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

func (rl *RedisLimiter) Allow(ctx context.Context, key string) (RateLimitResult, error) {
	redisKey, reset := rl.windowKey(key)

	// MULTI/EXEC so the counter never exists without its expiry
	pipe := rl.redis.TxPipeline()
	incrCmd := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, rl.config.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return RateLimitResult{}, err
	}

	return rl.result(int(incrCmd.Val()), reset), nil
}

func (rl *RedisLimiter) Peek(ctx context.Context, key string) (RateLimitResult, error) {
	redisKey, reset := rl.windowKey(key)

	count, err := rl.redis.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		// No requests yet in this window
		return rl.result(0, reset), nil
	}
	if err != nil {
		return RateLimitResult{}, err
	}
	res := rl.result(count, reset)
	res.Allowed = count < rl.config.Limit
	return res, nil
}

// LocalLimiter keeps a token bucket per key in process memory. The bucket
// holds Limit tokens and refills one every Window/Limit.
type LocalLimiter struct {
	mu       sync.RWMutex
	limiters map[string]*rate.Limiter
	config   RateLimitConfig
	every    time.Duration
	now      func() time.Time
}

func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	return &LocalLimiter{
		limiters: make(map[string]*rate.Limiter),
		config:   config,
		every:    config.Window / time.Duration(config.Limit),
		now:      time.Now,
	}
}

// getLimiter returns the limiter for a key, creating one if needed.
func (l *LocalLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()
	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, exists = l.limiters[key]; exists {
		return limiter
	}
	limiter = rate.NewLimiter(rate.Every(l.every), l.config.Limit)
	l.limiters[key] = limiter
	return limiter
}

// standing reports the bucket at now. Reset is when the next token arrives.
func (l *LocalLimiter) standing(limiter *rate.Limiter, now time.Time, allowed bool) RateLimitResult {
	tokens := limiter.TokensAt(now)
	remaining := int(math.Floor(tokens))
	if remaining < 0 {
		remaining = 0
	}
	reset := now
	if tokens < 1 {
		reset = now.Add(time.Duration((1 - tokens) * float64(l.every)))
	}
	return RateLimitResult{
		Allowed:   allowed,
		Limit:     l.config.Limit,
		Remaining: remaining,
		Reset:     reset,
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (RateLimitResult, error) {
	limiter := l.getLimiter(key)
	now := l.now()
	allowed := limiter.AllowN(now, 1)
	return l.standing(limiter, now, allowed), nil
}

func (l *LocalLimiter) Peek(_ context.Context, key string) (RateLimitResult, error) {
	limiter := l.getLimiter(key)
	now := l.now()
	return l.standing(limiter, now, limiter.TokensAt(now) >= 1), nil
}

func setRateLimitHeaders(c *gin.Context, res RateLimitResult) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(res.Reset.Unix(), 10))
}

// RateLimit returns a Gin middleware that limits authenticated callers by
// user id. It must run after AuthMiddleware. Limiter failures let the request
// through.
func RateLimit(limiter Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentViewer(c)
		if !viewer.Authenticated() {
			c.Next()
			return
		}

		res, err := limiter.Allow(c.Request.Context(), strconv.FormatUint(uint64(viewer.UserID), 10))
		if err != nil {
			log.Warn("rate limit check failed", zap.Uint("user_id", viewer.UserID), zap.Error(err))
			c.Header("X-RateLimit-Error", "rate limit check failed")
			c.Next()
			return
		}

		setRateLimitHeaders(c, res)
		if !res.Allowed {
			retryAfter := int(math.Ceil(time.Until(res.Reset).Seconds()))
			if retryAfter < 0 {
				retryAfter = 0
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":        "RATE_LIMITED",
				"error":       "rate limit exceeded",
				"retry_after": retryAfter,
			})
			return
		}

		c.Next()
	}
}

// RateLimitStatus reports the caller's standing with limiter without
// counting a request.
func RateLimitStatus(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		viewer := CurrentViewer(c)
		res, err := limiter.Peek(c.Request.Context(), strconv.FormatUint(uint64(viewer.UserID), 10))
		if err != nil {
			_ = c.Error(err)
			return
		}
		setRateLimitHeaders(c, res)
		c.JSON(http.StatusOK, gin.H{
			"limit":     res.Limit,
			"remaining": res.Remaining,
			"reset":     res.Reset.Unix(),
		})
	}
}
