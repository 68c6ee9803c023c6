package httptransport

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/lease"
)

// errorResponse 统一错误响应结构，所有非 2xx 响应都是这个形状。
type errorResponse struct {
	Error string `json:"error"`
}

// Error 写出错误响应。
func Error(c *gin.Context, status int, msg string) {
	c.JSON(status, errorResponse{Error: msg})
}

// BadRequest 请求参数错误（400）
func BadRequest(c *gin.Context, msg string) {
	Error(c, http.StatusBadRequest, msg)
}

// NotFound 资源不存在（404）
func NotFound(c *gin.Context, msg string) {
	Error(c, http.StatusNotFound, msg)
}

// Conflict 资源冲突（409）
func Conflict(c *gin.Context, msg string) {
	Error(c, http.StatusConflict, msg)
}

// InternalError 服务器内部错误（500）
func InternalError(c *gin.Context) {
	Error(c, http.StatusInternalServerError, "internal server error")
}

// mailboxResponse 邮箱视图，剩余秒数在出口处即时计算。
type mailboxResponse struct {
	Email           string    `json:"email"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	DurationMinutes int       `json:"duration_minutes"`
	TimeRemaining   int64     `json:"time_remaining_seconds"`
}

func newMailboxResponse(mb *domain.Mailbox) mailboxResponse {
	return mailboxResponse{
		Email:           mb.Address,
		CreatedAt:       mb.CreatedAt,
		ExpiresAt:       mb.ExpiresAt,
		DurationMinutes: mb.DurationMinutes,
		TimeRemaining:   lease.RemainingSeconds(mb.ExpiresAt, time.Now()),
	}
}
