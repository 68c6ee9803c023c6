package health

import (
	"net/http"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"snapmail/backend/internal/storage"
)

// Checker 健康检查器，包装存储层的健康探针。
type Checker struct {
	handler healthcheck.Handler
	store   storage.Store
	log     *zap.Logger
}

// NewChecker 创建健康检查器。
func NewChecker(store storage.Store, log *zap.Logger) *Checker {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Checker{
		handler: healthcheck.NewHandler(),
		store:   store,
		log:     log,
	}
	c.addChecks()
	return c
}

func (c *Checker) addChecks() {
	// 存活探针：存储后端可达
	c.handler.AddLivenessCheck("storage", func() error {
		return c.store.Health()
	})

	// 就绪探针：限流计数器可用
	c.handler.AddReadinessCheck("rate-limit", func() error {
		_, err := c.store.GetRateLimit("health_check")
		return err
	})
}

// Handler 返回 /live 和 /ready 的 HTTP 处理器。
func (c *Checker) Handler() http.Handler {
	return c.handler
}

// Status 返回一个简单的健康状态快照，用于业务 API 的健康端点。
func (c *Checker) Status() (string, bool) {
	if err := c.store.Health(); err != nil {
		c.log.Warn("health check failed", zap.Error(err))
		return "degraded", false
	}
	return "ok", true
}
