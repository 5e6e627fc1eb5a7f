package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// 业务与 HTTP 指标，通过 /metrics 端点暴露给 Prometheus。
var (
	// HTTPRequestsTotal 按方法/路径/状态码计数 HTTP 请求。
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPRequestDuration 记录请求处理耗时分布。
	HTTPRequestDuration *prometheus.HistogramVec

	// UsersRegisteredTotal 注册成功的用户数。
	UsersRegisteredTotal prometheus.Counter

	// FeedsAuthorizedTotal 管理员发布的内容条目数。
	FeedsAuthorizedTotal prometheus.Counter

	// RateLimitRejectedTotal 被限流拒绝的请求数。
	RateLimitRejectedTotal prometheus.Counter

	// MailSentTotal 成功投递的欢迎邮件数。
	MailSentTotal prometheus.Counter

	// MailDLQTotal 进入死信队列的邮件消息数。
	MailDLQTotal prometheus.Counter
)

var initOnce sync.Once

// Init 创建并注册所有指标。
//
// 可以安全地多次调用（测试里会重复初始化）。
func Init() {
	initOnce.Do(func() {
		HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "path", "status"})

		HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "felicidade",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"})

		UsersRegisteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "users_registered_total",
			Help:      "Total number of successful registrations.",
		})

		FeedsAuthorizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "feeds_authorized_total",
			Help:      "Total number of feed items published by admins.",
		})

		RateLimitRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "ratelimit_rejected_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		})

		MailSentTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "mail_sent_total",
			Help:      "Total number of welcome emails delivered.",
		})

		MailDLQTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "felicidade",
			Name:      "mail_dlq_total",
			Help:      "Total number of mail messages moved to the dead letter stream.",
		})

		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			UsersRegisteredTotal,
			FeedsAuthorizedTotal,
			RateLimitRejectedTotal,
			MailSentTotal,
			MailDLQTotal,
		)
	})
}
