package middleware

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"kelabpetani/internal/metrics"
	"kelabpetani/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

//go:embed scripts/fixed_window.lua
var fixedWindowScript string

// RateLimiter counts requests per caller in fixed windows stored in Redis.
// When Redis cannot be reached requests are let through.
type RateLimiter struct {
	rdb     redis.Scripter
	script  *redis.Script
	timeout time.Duration
	log     *zap.Logger
}

func NewRateLimiter(rdb redis.Scripter, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		rdb:     rdb,
		script:  redis.NewScript(fixedWindowScript),
		timeout: 200 * time.Millisecond,
		log:     log,
	}
}

// Allow reports whether key may make another request in the current window.
func (l *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	bucket := time.Now().Unix() / int64(window.Seconds())
	redisKey := fmt.Sprintf("ratelimit:%s:%d", key, bucket)

	count, err := l.script.Run(ctx, l.rdb, []string{redisKey}, int(window.Seconds())).Int64()
	if err != nil {
		return true, fmt.Errorf("rate limit script failed: %w", err)
	}
	return count <= int64(limit), nil
}

// Limit allows limit requests per window for each actor (or client IP when
// anonymous) on the named route. A nil limiter disables limiting.
func (l *RateLimiter) Limit(route string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil || l.rdb == nil {
			c.Next()
			return
		}

		caller := "ip:" + c.ClientIP()
		if actor, ok := ActorFrom(c); ok {
			caller = "user:" + actor.ID.String()
		}

		allowed, err := l.Allow(c.Request.Context(), route+":"+caller, limit, window)
		if err != nil {
			l.log.Warn("rate limiter unavailable, allowing request", zap.String("route", route), zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			c.Header("Retry-After", strconv.Itoa(int(window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, response.Error(http.StatusTooManyRequests, "Too many requests, slow down"))
			return
		}
		c.Next()
	}
}
