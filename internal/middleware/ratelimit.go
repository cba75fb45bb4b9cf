package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gagikpog/meme-navigator/internal/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const (
	rateLimitMax    = 50
	rateLimitWindow = time.Second
)

// RateLimit returns a middleware that enforces a sliding-window rate limit of
// 50 requests per second per anonymous client IP. The limiter runs before the
// access gate, so "not anonymous" means the request carries a token with a
// valid signature; session liveness is the gate's concern downstream.
func RateLimit(rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if _, err := jwt.Parse(token); err == nil {
				c.Next()
				return
			}
		}

		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		windowKey := time.Now().Unix()
		key := fmt.Sprintf("mn:rate_limit:%s:%d", ip, windowKey)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			c.Next()
			return
		}

		if count == 1 {
			rdb.PExpire(ctx, key, rateLimitWindow+time.Second)
		}

		if count > rateLimitMax {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"ok":      0,
				"code":    http.StatusTooManyRequests,
				"message": "Подождите.. не так быстро ∑(っ °Д °;)っ",
			})
			return
		}

		c.Next()
	}
}
