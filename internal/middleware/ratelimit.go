package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/storage"
)

// RateLimiter 基于存储层计数器的限流中间件。
//
// 计数器挂在存储接口上：内存模式用进程内计数，
// 混合模式走 Redis，多实例部署时计数自然共享。
type RateLimiter struct {
	repo    storage.RateLimitRepository
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewRateLimiter 创建限流中间件。
func NewRateLimiter(repo storage.RateLimitRepository, metrics *monitoring.Metrics, log *zap.Logger) *RateLimiter {
	if log == nil {
		log = zap.NewNop()
	}
	return &RateLimiter{
		repo:    repo,
		metrics: metrics,
		log:     log,
	}
}

// Limit 返回按客户端 IP 限流的 gin 中间件。
//
// limitType 用于区分不同的限流桶（同一 IP 在不同桶里分开计数）。
// 存储层计数失败时放行请求，限流不能成为可用性瓶颈。
func (rl *RateLimiter) Limit(limitType string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("ratelimit:%s:%s", limitType, c.ClientIP())

		count, err := rl.repo.IncrementRateLimit(key, window)
		if err != nil {
			rl.log.Warn("rate limit counter unavailable",
				zap.String("type", limitType),
				zap.Error(err),
			)
			c.Next()
			return
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			if rl.metrics != nil {
				rl.metrics.RecordRateLimitBlock(limitType)
			}
			rl.log.Warn("rate limit exceeded",
				zap.String("type", limitType),
				zap.String("ip", c.ClientIP()),
				zap.Int64("count", count),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, please try again later",
			})
			return
		}

		c.Next()
	}
}
