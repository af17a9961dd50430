package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HandleRateLimitStatus describes the limit that applies to the calling IP
func (rl *RateLimiter) HandleRateLimitStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimitPerMin,
					"burst":  rl.config.IPLimitPerMin * rl.config.BurstMultiplier,
					"period": "1 minute",
				},
			},
			"limiter":   rl.GetStats(),
			"timestamp": time.Now().Format(time.RFC3339),
		}
		if rl.metrics != nil {
			status["blocks"] = rl.metrics.GetRateLimitStats()
		}

		c.JSON(http.StatusOK, status)
	}
}
