package httptransport

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/service"
)

// MessageHandler 邮件内容相关的 HTTP 处理器。
type MessageHandler struct {
	messages *service.MessageService
	metrics  *monitoring.Metrics
}

// NewMessageHandler 创建邮件处理器。
func NewMessageHandler(messages *service.MessageService, metrics *monitoring.Metrics) *MessageHandler {
	return &MessageHandler{
		messages: messages,
		metrics:  metrics,
	}
}

// Get 返回单封邮件的完整内容，并把它标记为已读。
//
// GET /api/email/:id
func (h *MessageHandler) Get(c *gin.Context) {
	message, err := h.messages.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrMessageNotFound) {
			NotFound(c, "email not found")
			return
		}
		InternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.MessagesRead.Inc()
	}
	c.JSON(http.StatusOK, message)
}
