package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTPMetrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

type DBMetrics struct {
	QueryDuration *prometheus.HistogramVec
}

type BusinessMetrics struct {
	BooksCreatedTotal  prometheus.Counter
	LoansCreatedTotal  prometheus.Counter
	LoansReturnedTotal prometheus.Counter
	RuleRejectedTotal  *prometheus.CounterVec
}

type NotifierMetrics struct {
	RunsTotal         *prometheus.CounterVec
	NoticesSentTotal  prometheus.Counter
	RecipientsSkipped *prometheus.CounterVec
	MailsDelivered    *prometheus.CounterVec
}

var (
	HTTP = HTTPMetrics{
		RequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_api_http_requests_total",
				Help: "Total number of HTTP requests received.",
			},
			[]string{"method", "path", "code"},
		),
		RequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_api_http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "code"},
		),
	}

	DB = DBMetrics{
		QueryDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "library_api_db_query_duration_seconds",
				Help:    "Histogram of database query latencies.",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"query_name", "status"},
		),
	}

	Business = BusinessMetrics{
		BooksCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_api_books_created_total",
				Help: "Total number of books added to the catalog.",
			},
		),
		LoansCreatedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_api_loans_created_total",
				Help: "Total number of loans created.",
			},
		),
		LoansReturnedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_api_loans_returned_total",
				Help: "Total number of loans marked as returned.",
			},
		),
		RuleRejectedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_api_business_rule_rejections_total",
				Help: "Total number of requests rejected by a business rule.",
			},
			[]string{"rule"},
		),
	}

	Notifier = NotifierMetrics{
		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_api_overdue_notification_runs_total",
				Help: "Total number of overdue notification job runs by outcome.",
			},
			[]string{"status"},
		),
		NoticesSentTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "library_api_overdue_notices_sent_total",
				Help: "Total number of recipients included in overdue notices.",
			},
		),
		RecipientsSkipped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_api_overdue_recipients_skipped_total",
				Help: "Total number of overdue notice recipients dropped before or during delivery.",
			},
			[]string{"reason"},
		),
		MailsDelivered: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "library_mailer_deliveries_total",
				Help: "Total number of overdue notice deliveries handled by the mailer.",
			},
			[]string{"status"},
		),
	}
)

func RecordHTTPRequest(method, path, code string, duration time.Duration) {
	HTTP.RequestsTotal.WithLabelValues(method, path, code).Inc()
	HTTP.RequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordDBQuery(queryName, status string, duration time.Duration) {
	DB.QueryDuration.WithLabelValues(queryName, status).Observe(duration.Seconds())
}

func RecordBookCreated() {
	Business.BooksCreatedTotal.Inc()
}

func RecordLoanCreated() {
	Business.LoansCreatedTotal.Inc()
}

func RecordLoanReturned() {
	Business.LoansReturnedTotal.Inc()
}

func RecordRuleRejected(rule string) {
	Business.RuleRejectedTotal.WithLabelValues(rule).Inc()
}

func RecordNotifierRun(status string, recipients int) {
	Notifier.RunsTotal.WithLabelValues(status).Inc()
	if recipients > 0 {
		Notifier.NoticesSentTotal.Add(float64(recipients))
	}
}

func RecordRecipientSkipped(reason string) {
	Notifier.RecipientsSkipped.WithLabelValues(reason).Inc()
}

func RecordMailDelivery(status string) {
	Notifier.MailsDelivered.WithLabelValues(status).Inc()
}
