package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the bot.
type Metrics struct {
	UpdatesProcessed  *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	PaymentDecisions  *prometheus.CounterVec
	ReferralsCredited prometheus.Counter
	BroadcastSends    *prometheus.CounterVec
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = &Metrics{
			UpdatesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "updates_processed_total",
				Help:      "Total Telegram updates processed by kind.",
			}, []string{"kind"}),
			MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "messages_sent_total",
				Help:      "Total outbound messages by type.",
			}, []string{"type"}),
			PaymentDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payment_decisions_total",
				Help:      "Total admin payment decisions by outcome.",
			}, []string{"outcome"}),
			ReferralsCredited: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "referrals_credited_total",
				Help:      "Total referral rewards credited.",
			}),
			BroadcastSends: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "broadcast_sends_total",
				Help:      "Total broadcast deliveries by result.",
			}, []string{"result"}),
			Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "errors_total",
				Help:      "Total errors grouped by component.",
			}, []string{"component"}),
		}

		prometheus.MustRegister(
			metricsInstance.UpdatesProcessed,
			metricsInstance.MessagesSent,
			metricsInstance.PaymentDecisions,
			metricsInstance.ReferralsCredited,
			metricsInstance.BroadcastSends,
			metricsInstance.Errors,
		)
	})
	return metricsInstance
}
