package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/campusdirectory/facility-api/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const rateLimitKeyPrefix = "ratelimit:"

// RateLimitConfig bounds requests per client IP over a fixed window
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// RateLimitKey is the Redis counter key for a client in the window that
// contains now
func RateLimitKey(ip string, window time.Duration, now time.Time) string {
	bucket := now.Unix() / windowSeconds(window)
	return fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, ip, bucket)
}

// windowSeconds is never below one
func windowSeconds(window time.Duration) int64 {
	if secs := int64(window.Seconds()); secs > 0 {
		return secs
	}
	return 1
}

// RateLimit counts requests per client IP in Redis. When Redis is nil or
// unreachable requests are let through.
func RateLimit(client *redis.Client, config RateLimitConfig, logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || config.Requests <= 0 {
			c.Next()
			return
		}

		now := time.Now()
		key := RateLimitKey(utils.GetRealIP(c), config.Window, now)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		defer cancel()

		pipe := client.TxPipeline()
		incr := pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, time.Duration(windowSeconds(config.Window))*time.Second)
		if _, err := pipe.Exec(ctx); err != nil {
			logger.WithError(err).Warn("Rate limiter unavailable, allowing request")
			c.Next()
			return
		}

		count := incr.Val()
		remaining := int64(config.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(config.Requests))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(config.Requests) {
			windowSecs := windowSeconds(config.Window)
			retryAfter := windowSecs - now.Unix()%windowSecs
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"error":   "Too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}
