package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 同步、账单、通知相关指标
type Metrics struct {
	SyncTotal    *prometheus.CounterVec
	SyncDuration prometheus.Histogram

	BillingGenerated *prometheus.CounterVec
	BillingRejected  *prometheus.CounterVec

	NotificationsSent *prometheus.CounterVec
	RemindersMarked   prometheus.Counter
}

var (
	defaultMetrics *Metrics
	once           sync.Once
)

// Get 全局指标实例，只注册一次
func Get() *Metrics {
	once.Do(func() {
		defaultMetrics = newMetrics()
	})
	return defaultMetrics
}

func newMetrics() *Metrics {
	return &Metrics{
		SyncTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportshub_sync_total",
				Help: "Total number of snapshot syncs",
			},
			[]string{"scope", "result"},
		),

		SyncDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sportshub_sync_duration_seconds",
				Help:    "Duration of snapshot syncs",
				Buckets: prometheus.DefBuckets,
			},
		),

		BillingGenerated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportshub_billing_transactions_generated_total",
				Help: "Transactions created by billing cycle generation",
			},
			[]string{"tenant_id"},
		),

		BillingRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportshub_billing_generation_rejected_total",
				Help: "Billing generations rejected before any write",
			},
			[]string{"reason"},
		),

		NotificationsSent: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sportshub_notifications_total",
				Help: "Outbound notification send attempts",
			},
			[]string{"type", "result"},
		),

		RemindersMarked: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "sportshub_trial_reminders_marked_total",
				Help: "Leads marked as reminded after a trial reminder dispatch",
			},
		),
	}
}
