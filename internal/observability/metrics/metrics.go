// Package metrics exports settlement sweep and payout health signals.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// SettlementMetrics captures sweep and payout batch health signals.
type SettlementMetrics struct {
	jobRuns              *prometheus.CounterVec
	jobDuration          *prometheus.HistogramVec
	jobErrors            *prometheus.CounterVec
	itemsProcessed       *prometheus.CounterVec
	bookingsCompleted    prometheus.Counter
	disputesResolved     *prometheus.CounterVec
	payoutsSubmitted     prometheus.Counter
	payoutsFailed        prometheus.Counter
	payoutAmountCents    prometheus.Counter
	payoutExpertsSkipped prometheus.Counter
}

var (
	settlementOnce    sync.Once
	settlementMetrics *SettlementMetrics
)

// Settlement returns the singleton settlement metrics registry.
func Settlement() *SettlementMetrics {
	settlementOnce.Do(func() {
		settlementMetrics = newSettlementMetrics(prometheus.DefaultRegisterer)
	})
	return settlementMetrics
}

// ResetForTest resets the metrics singleton for tests.
func ResetForTest() {
	settlementOnce = sync.Once{}
	settlementMetrics = nil
}

func newSettlementMetrics(registerer prometheus.Registerer) *SettlementMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &SettlementMetrics{
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visalane_sweep_job_runs_total",
			Help: "Sweep job runs by name.",
		}, []string{"job"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "visalane_sweep_job_duration_seconds",
			Help:    "Sweep job duration by name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visalane_sweep_job_errors_total",
			Help: "Per-item errors swallowed by sweep jobs.",
		}, []string{"job"}),
		itemsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visalane_sweep_items_processed_total",
			Help: "Records advanced by sweep jobs.",
		}, []string{"job"}),
		bookingsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visalane_bookings_auto_completed_total",
			Help: "Bookings completed by the auto-completion pass.",
		}),
		disputesResolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "visalane_disputes_auto_resolved_total",
			Help: "Disputes resolved by the scheduler, by outcome.",
		}, []string{"outcome"}),
		payoutsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visalane_payouts_submitted_total",
			Help: "Weekly payout transfers accepted by the gateway.",
		}),
		payoutsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visalane_payouts_failed_total",
			Help: "Weekly payout transfers rejected by the gateway.",
		}),
		payoutAmountCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visalane_payout_amount_cents_total",
			Help: "Total minor units paid out to experts.",
		}),
		payoutExpertsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "visalane_payout_experts_skipped_total",
			Help: "Experts skipped because their payout account is not enabled.",
		}),
	}

	collectors := []prometheus.Collector{
		m.jobRuns, m.jobDuration, m.jobErrors, m.itemsProcessed,
		m.bookingsCompleted, m.disputesResolved,
		m.payoutsSubmitted, m.payoutsFailed, m.payoutAmountCents, m.payoutExpertsSkipped,
	}
	for _, c := range collectors {
		if err := registerer.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			zap.L().Warn("metric registration failed", zap.Error(err))
		}
	}
	return m
}

func (m *SettlementMetrics) IncJobRun(job string) {
	m.jobRuns.WithLabelValues(job).Inc()
}

func (m *SettlementMetrics) ObserveJobDuration(job string, d time.Duration) {
	m.jobDuration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *SettlementMetrics) IncJobError(job string) {
	m.jobErrors.WithLabelValues(job).Inc()
}

func (m *SettlementMetrics) AddItemsProcessed(job string, n int) {
	if n <= 0 {
		return
	}
	m.itemsProcessed.WithLabelValues(job).Add(float64(n))
}

func (m *SettlementMetrics) IncBookingAutoCompleted() {
	m.bookingsCompleted.Inc()
}

func (m *SettlementMetrics) IncDisputeResolved(outcome string) {
	m.disputesResolved.WithLabelValues(outcome).Inc()
}

func (m *SettlementMetrics) IncPayoutSubmitted(amount int64) {
	m.payoutsSubmitted.Inc()
	if amount > 0 {
		m.payoutAmountCents.Add(float64(amount))
	}
}

func (m *SettlementMetrics) IncPayoutFailed() {
	m.payoutsFailed.Inc()
}

func (m *SettlementMetrics) IncPayoutExpertSkipped() {
	m.payoutExpertsSkipped.Inc()
}
