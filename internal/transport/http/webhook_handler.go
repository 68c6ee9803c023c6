package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/service"
)

// WebhookHandler 接收邮件服务商入站 webhook 的 HTTP 处理器。
type WebhookHandler struct {
	delivery *service.DeliveryService
	metrics  *monitoring.Metrics
	log      *zap.Logger
}

// NewWebhookHandler 创建 webhook 处理器。
func NewWebhookHandler(delivery *service.DeliveryService, metrics *monitoring.Metrics, log *zap.Logger) *WebhookHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WebhookHandler{
		delivery: delivery,
		metrics:  metrics,
		log:      log,
	}
}

// inboundPayload 入站 webhook 载荷。
//
// 不同服务商的字段命名不统一：to 可能是字符串也可能是数组，
// 发件人在 from 或 sender，正文在 text 或 body。这里全部兼容。
type inboundPayload struct {
	To      json.RawMessage `json:"to"`
	From    string          `json:"from"`
	Sender  string          `json:"sender"`
	Subject string          `json:"subject"`
	Text    string          `json:"text"`
	Body    string          `json:"body"`
	HTML    string          `json:"html"`
}

type inboundResponse struct {
	Received bool `json:"received"`
	Stored   bool `json:"stored"`
}

// Receive 接收一封入站邮件。
//
// POST /api/webhook/:provider
//
// 找不到目标邮箱不算失败：返回 200 且 stored 为 false，
// 避免服务商对注定无法投递的邮件反复重试。
func (h *WebhookHandler) Receive(c *gin.Context) {
	var payload inboundPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		BadRequest(c, "invalid payload")
		return
	}

	if h.metrics != nil {
		h.metrics.MessagesReceived.Inc()
	}

	result, err := h.delivery.Deliver(service.InboundMessage{
		Recipients: parseRecipients(payload.To),
		Sender:     firstNonEmpty(payload.From, payload.Sender),
		Subject:    payload.Subject,
		BodyText:   firstNonEmpty(payload.Text, payload.Body),
		BodyHTML:   payload.HTML,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNoRecipient):
			BadRequest(c, "missing recipient")
		case errors.Is(err, service.ErrInvalidRecipient):
			BadRequest(c, "invalid recipient address")
		default:
			h.log.Error("inbound delivery failed",
				zap.String("provider", c.Param("provider")),
				zap.Error(err),
			)
			InternalError(c)
		}
		return
	}

	if h.metrics != nil {
		if result.Stored {
			h.metrics.MessagesStored.Inc()
		} else {
			h.metrics.MessagesDiscarded.Inc()
		}
	}
	c.JSON(http.StatusOK, inboundResponse{Received: true, Stored: result.Stored})
}

// parseRecipients 兼容字符串和字符串数组两种 to 字段形态。
func parseRecipients(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		return []string{single}
	}

	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
