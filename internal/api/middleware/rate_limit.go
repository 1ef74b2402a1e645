package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"edu-records/pkg/response"
)

// RateLimiter 滑动窗口计数，由 pkg/redis.Client 实现
type RateLimiter interface {
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimit 基于 Redis 滑动窗口的速率限制中间件
// 按调用方（已认证时取 user_id，否则取 IP）与路由计数
// limiter 为 nil、limit<=0 或 Redis 出错时降级放行（与 JWTAuth 策略一致）
func RateLimit(limiter RateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil || limit <= 0 {
			c.Next()
			return
		}

		caller := c.GetString(CtxUserID)
		if caller == "" {
			caller = c.ClientIP()
		}
		key := fmt.Sprintf("rate_limit:%s:%s", caller, c.FullPath())
		allowed, err := limiter.CheckRateLimit(c.Request.Context(), key, limit, window)
		if err != nil {
			c.Next()
			return
		}

		if !allowed {
			response.TooManyRequests(c, 10004, "请求过于频繁，请稍后再试")
			c.Abort()
			return
		}

		c.Next()
	}
}
