// Package metrics exposes the bot's Prometheus instruments. A nil *Metrics is
// valid and records nothing, so services can run without a registry in tests.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	VerificationOutcomes *prometheus.CounterVec
	EmailDeliveries      *prometheus.CounterVec
	OrdersPlaced         prometheus.Counter
	OrderReplays         prometheus.Counter
	NotifyFailures       *prometheus.CounterVec
	UpdatesHandled       *prometheus.CounterVec
	UpdateDuration       prometheus.Histogram
}

// New registers every instrument on reg. Pass prometheus.DefaultRegisterer in main.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		VerificationOutcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_verification_outcomes_total",
			Help: "Verification conversation steps by outcome",
		}, []string{"outcome"}),
		EmailDeliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_email_deliveries_total",
			Help: "Confirmation e-mails by delivery result",
		}, []string{"result"}),
		OrdersPlaced: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_orders_placed_total",
			Help: "Orders persisted",
		}),
		OrderReplays: f.NewCounter(prometheus.CounterOpts{
			Name: "storefront_order_replays_total",
			Help: "Redelivered order triggers answered with an existing order",
		}),
		NotifyFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_notify_failures_total",
			Help: "New-order notifications that failed, by channel",
		}, []string{"channel"}),
		UpdatesHandled: f.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_updates_handled_total",
			Help: "Chat updates processed by kind",
		}, []string{"kind"}),
		UpdateDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "storefront_update_duration_seconds",
			Help:    "Time spent handling one chat update",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

func (m *Metrics) IncVerificationOutcome(outcome string) {
	if m == nil {
		return
	}
	m.VerificationOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncEmailDelivery(ok bool) {
	if m == nil {
		return
	}
	result := "sent"
	if !ok {
		result = "failed"
	}
	m.EmailDeliveries.WithLabelValues(result).Inc()
}

func (m *Metrics) IncOrderPlaced() {
	if m == nil {
		return
	}
	m.OrdersPlaced.Inc()
}

func (m *Metrics) IncOrderReplay() {
	if m == nil {
		return
	}
	m.OrderReplays.Inc()
}

func (m *Metrics) IncNotifyFailure(channel string) {
	if m == nil {
		return
	}
	m.NotifyFailures.WithLabelValues(channel).Inc()
}

// ObserveUpdate records one handled update. Call with time.Now() taken before handling.
func (m *Metrics) ObserveUpdate(kind string, start time.Time) {
	if m == nil {
		return
	}
	m.UpdatesHandled.WithLabelValues(kind).Inc()
	m.UpdateDuration.Observe(time.Since(start).Seconds())
}
