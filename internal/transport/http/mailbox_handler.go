package httptransport

import (
	"errors"
	"math/rand"
	"net/http"

	"github.com/gin-gonic/gin"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/monitoring"
	"snapmail/backend/internal/service"
)

// MailboxHandler 邮箱生命周期相关的 HTTP 处理器。
type MailboxHandler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	delivery  *service.DeliveryService
	metrics   *monitoring.Metrics
}

// NewMailboxHandler 创建邮箱处理器。
func NewMailboxHandler(
	mailboxes *service.MailboxService,
	messages *service.MessageService,
	delivery *service.DeliveryService,
	metrics *monitoring.Metrics,
) *MailboxHandler {
	return &MailboxHandler{
		mailboxes: mailboxes,
		messages:  messages,
		delivery:  delivery,
		metrics:   metrics,
	}
}

type createMailboxRequest struct {
	Prefix   string `json:"prefix"`   // 可选的自定义前缀
	Duration int    `json:"duration"` // 生存时长（分钟），非法值回落到最短档
}

// Create 创建临时邮箱。
//
// POST /api/mailbox/create
func (h *MailboxHandler) Create(c *gin.Context) {
	var req createMailboxRequest
	// 空请求体也合法，等价于全随机、最短时长
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid request body")
			return
		}
	}

	mailbox, err := h.mailboxes.Create(service.CreateMailboxInput{
		Prefix:          req.Prefix,
		DurationMinutes: req.Duration,
	})
	if err != nil {
		if errors.Is(err, service.ErrAddressTaken) {
			Conflict(c, "this address is already taken")
			return
		}
		InternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.MailboxesCreated.Inc()
	}
	c.JSON(http.StatusOK, newMailboxResponse(mailbox))
}

// Get 查询邮箱状态与剩余时间。
//
// GET /api/mailbox/:email
func (h *MailboxHandler) Get(c *gin.Context) {
	mailbox, err := h.mailboxes.Get(c.Param("email"))
	if err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			NotFound(c, "mailbox not found or expired")
			return
		}
		InternalError(c)
		return
	}
	c.JSON(http.StatusOK, newMailboxResponse(mailbox))
}

// Refresh 把邮箱剩余时间重置为固定续期时长。
//
// POST /api/mailbox/:email/refresh
func (h *MailboxHandler) Refresh(c *gin.Context) {
	if _, err := h.mailboxes.Refresh(c.Param("email")); err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			NotFound(c, "mailbox not found or expired")
			return
		}
		InternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.MailboxesExtended.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Delete 立即删除邮箱及其全部邮件。重复删除同样返回成功。
//
// DELETE /api/mailbox/:email
func (h *MailboxHandler) Delete(c *gin.Context) {
	if err := h.mailboxes.Delete(c.Param("email")); err != nil {
		InternalError(c)
		return
	}

	if h.metrics != nil {
		h.metrics.MailboxesDeleted.Inc()
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

type messageListResponse struct {
	Emails []domain.MessageSummary `json:"emails"`
}

// ListMessages 返回邮箱的邮件摘要列表。
//
// GET /api/mailbox/:email/emails
func (h *MailboxHandler) ListMessages(c *gin.Context) {
	summaries, err := h.messages.List(c.Param("email"))
	if err != nil {
		if errors.Is(err, service.ErrMailboxNotFound) {
			NotFound(c, "mailbox not found or expired")
			return
		}
		InternalError(c)
		return
	}

	c.JSON(http.StatusOK, messageListResponse{Emails: summaries})
}

// 生成测试邮件用的素材
var (
	testSenders = []string{
		"newsletter@example.com",
		"noreply@shop.example",
		"support@service.example",
	}
	testSubjects = []string{
		"Welcome aboard!",
		"Your verification code",
		"Weekly digest",
	}
)

// GenerateTestEmail 向邮箱投递一封合成的测试邮件，方便前端联调。
//
// POST /api/mailbox/:email/generate-email
func (h *MailboxHandler) GenerateTestEmail(c *gin.Context) {
	email := c.Param("email")

	result, err := h.delivery.Deliver(service.InboundMessage{
		Recipients: []string{email},
		Sender:     testSenders[rand.Intn(len(testSenders))],
		Subject:    testSubjects[rand.Intn(len(testSubjects))],
		BodyText:   "This is a generated test message. If you can read this, delivery works.",
		BodyHTML:   "<p>This is a generated <strong>test</strong> message.</p>",
	})
	if err != nil {
		BadRequest(c, "invalid mailbox address")
		return
	}
	if !result.Stored {
		NotFound(c, "mailbox not found or expired")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
