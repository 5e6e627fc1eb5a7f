package middleware

import (
	"context"
	"net/http"
	"time"

	"log/slog"

	"felicidade/internal/pkg/metrics"
	"felicidade/internal/pkg/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 用令牌桶保护认证端点（注册/登录）。
//
// Redis 故障时放行，限流是保护手段而不是可用性依赖。
func RateLimit(limiter *ratelimit.RateLimiter, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		allowed, wait, err := limiter.Allow(ctx)
		if err != nil {
			if logger != nil {
				logger.Warn("rate limit check failed", slog.String("error", err.Error()))
			}
			c.Next()
			return
		}
		if !allowed {
			if metrics.RateLimitRejectedTotal != nil {
				metrics.RateLimitRejectedTotal.Inc()
			}
			retryAfter := int(wait / time.Second)
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many requests", "retry_after": retryAfter})
			c.Abort()
			return
		}
		c.Next()
	}
}
