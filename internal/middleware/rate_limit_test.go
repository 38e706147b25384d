package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/foodgram/backend/internal/testhelpers"
)

// failingLimiter always errors.
type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (RateLimitResult, error) {
	return RateLimitResult{}, fmt.Errorf("redis: connection refused")
}

func (failingLimiter) Peek(context.Context, string) (RateLimitResult, error) {
	return RateLimitResult{}, fmt.Errorf("redis: connection refused")
}

func TestLocalLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	l := NewLocalLimiter(RateLimitConfig{Window: time.Minute, Limit: 3})
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for want := 2; want >= 0; want-- {
		res, err := l.Allow(ctx, "1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, want, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := l.Allow(ctx, "1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, now.Add(20*time.Second), res.Reset)

	// other keys have their own bucket
	res, err = l.Allow(ctx, "2")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	// one token is back after Window/Limit
	now = now.Add(20 * time.Second)
	res, err = l.Peek(ctx, "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.Allow(ctx, "1")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
}

func rateLimitedRouter(limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(ErrorHandler(zap.NewNop()))
	r.POST("/recipes", OptionalAuth(validator), RateLimit(limiter, zap.NewNop()), func(c *gin.Context) {
		c.Status(http.StatusCreated)
	})
	r.GET("/limits", AuthMiddleware(validator), RateLimitStatus(limiter))
	return r
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewLocalLimiter(NewRecipeCreationConfig(2, time.Hour))
	r := rateLimitedRouter(limiter)

	w := perform(r, http.MethodPost, "/recipes", "Token user-token")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, w.Header().Get("X-RateLimit-Reset"))

	w = perform(r, http.MethodPost, "/recipes", "Token user-token")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))

	w = perform(r, http.MethodPost, "/recipes", "Token user-token")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate limit exceeded")
	retryAfter, err := strconv.Atoi(w.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.Greater(t, retryAfter, 0)

	// another user is unaffected
	w = perform(r, http.MethodPost, "/recipes", "Token admin-token")
	assert.Equal(t, http.StatusCreated, w.Code)

	// anonymous requests are left to the auth layer
	w = perform(r, http.MethodPost, "/recipes", "")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))

	w = perform(r, http.MethodGet, "/limits", "Token user-token")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"remaining":0`)
}

func TestRateLimitMiddlewareFailsOpen(t *testing.T) {
	r := rateLimitedRouter(failingLimiter{})

	w := perform(r, http.MethodPost, "/recipes", "Token user-token")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "rate limit check failed", w.Header().Get("X-RateLimit-Error"))

	w = perform(r, http.MethodGet, "/limits", "Token user-token")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestNewLimiterFallsBackToLocal(t *testing.T) {
	limiter := NewLimiter(nil, NewRecipeCreationConfig(1, time.Minute))
	_, ok := limiter.(*LocalLimiter)
	assert.True(t, ok)
}

func TestRedisLimiter(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 30, 0, 0, time.UTC)
	l := NewRedisLimiter(client, RateLimitConfig{Window: time.Hour, Limit: 2, KeyPrefix: "test"})
	l.now = func() time.Time { return now }

	res, err := l.Peek(ctx, "7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 2, res.Remaining)

	for _, want := range []bool{true, true, false} {
		res, err = l.Allow(ctx, "7")
		require.NoError(t, err)
		assert.Equal(t, want, res.Allowed)
	}
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC), res.Reset.UTC())

	res, err = l.Peek(ctx, "7")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	// a new window starts over
	now = now.Add(time.Hour)
	res, err = l.Allow(ctx, "7")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
	assert.Equal(t, 1, res.Remaining)
}

func TestRedisLimiterCounterCarriesExpiry(t *testing.T) {
	client := testhelpers.SetupRedis(t)
	ctx := context.Background()
	l := NewRedisLimiter(client, RateLimitConfig{Window: time.Minute, Limit: 5, KeyPrefix: "test"})
	now := time.Now()
	l.now = func() time.Time { return now }

	_, err := l.Allow(ctx, "9")
	require.NoError(t, err)

	key, _ := l.windowKey("9")
	ttl, err := client.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, time.Minute)

	count, err := client.Get(ctx, key).Int()
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
