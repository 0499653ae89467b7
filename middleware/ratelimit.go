package middleware

import (
	"net/http"
	"strconv"
	"time"

	"eduagent-knowledge/internal/logger"
	"eduagent-knowledge/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// RateLimitMiddleware is a fixed-window counter in Redis keyed by
// organization (or client IP) and route. It fails open when Redis is down.
func RateLimitMiddleware(rdb *redis.Client, limit, windowSeconds int) gin.HandlerFunc {
	window := time.Duration(windowSeconds) * time.Second
	return func(c *gin.Context) {
		if rdb == nil || limit <= 0 {
			c.Next()
			return
		}

		subject := GetOrganizationID(c)
		if subject == "" {
			subject = c.ClientIP()
		}
		key := "ratelimit:" + subject + ":" + c.FullPath()

		ctx := c.Request.Context()
		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("Rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		if count > int64(limit) {
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))
			utils.RespondWithError(c, http.StatusTooManyRequests,
				"rate_limit_exceeded",
				"Too many requests. Please try again later.",
				gin.H{"retry_after": windowSeconds, "limit": limit})
			return
		}
		c.Header("X-RateLimit-Remaining", strconv.Itoa(limit-int(count)))
		c.Next()
	}
}
