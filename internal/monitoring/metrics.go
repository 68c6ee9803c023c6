package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated   prometheus.Counter
	MailboxesDeleted   prometheus.Counter
	MailboxesExtended  prometheus.Counter
	MailboxesReclaimed prometheus.Counter

	// 邮件指标
	MessagesReceived  prometheus.Counter
	MessagesStored    prometheus.Counter
	MessagesDiscarded prometheus.Counter
	MessagesRead      prometheus.Counter

	// 回收指标
	SweepDuration prometheus.Histogram

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "snapmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_mailboxes_deleted_total",
				Help: "Total number of mailboxes deleted on request",
			},
		),

		MailboxesExtended: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_mailboxes_extended_total",
				Help: "Total number of mailbox lease refreshes",
			},
		),

		MailboxesReclaimed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_mailboxes_reclaimed_total",
				Help: "Total number of expired mailboxes reclaimed by the sweeper",
			},
		),

		MessagesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_messages_received_total",
				Help: "Total number of inbound messages received",
			},
		),

		MessagesStored: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_messages_stored_total",
				Help: "Total number of inbound messages stored",
			},
		),

		MessagesDiscarded: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_messages_discarded_total",
				Help: "Total number of inbound messages discarded, no matching mailbox",
			},
		),

		MessagesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "snapmail_messages_read_total",
				Help: "Total number of messages read",
			},
		),

		SweepDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "snapmail_sweep_duration_seconds",
				Help:    "Duration of expired mailbox sweep rounds in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "snapmail_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordSweep 记录一轮回收的耗时与回收数量
func (m *Metrics) RecordSweep(reclaimed int, duration time.Duration) {
	m.MailboxesReclaimed.Add(float64(reclaimed))
	m.SweepDuration.Observe(duration.Seconds())
}

// RecordRateLimitBlock 记录限流阻止
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
