package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	apperrors "github.com/ZanzyTHEbar/supply-risk-simulator/internal/errors"
	"github.com/gin-gonic/gin"
)

// IPRateLimitMiddleware rejects requests over the per-IP budget with 429
func (rl *RateLimiter) IPRateLimitMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			// a broken limiter must not take the API down with it
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Limit))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))

		if result.Allowed {
			c.Next()
			return
		}

		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitIPBlock()
			rl.metrics.IncrementRateLimitEndpoint(endpointOf(c))
		}

		retryAfter := int(result.RetryAfter.Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		c.Header("Retry-After", strconv.Itoa(retryAfter))

		appErr := apperrors.NewRateLimitError(strconv.Itoa(retryAfter) + "s")
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       appErr.Message(),
			"category":    appErr.Category,
			"retry_after": retryAfter,
			"reset_at":    result.ResetAt.Unix(),
		})
	}
}

func endpointOf(c *gin.Context) string {
	if path := c.FullPath(); path != "" {
		return path
	}
	return c.Request.URL.Path
}
