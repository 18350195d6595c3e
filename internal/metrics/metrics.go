package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	factory = promauto.With(Registry)

	webhookEvents = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpflow",
			Subsystem: "webhooks",
			Name:      "events_total",
			Help:      "Webhook deliveries by source, event type and outcome.",
		},
		[]string{"source", "type", "outcome"},
	)

	messageTransitions = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpflow",
			Subsystem: "messages",
			Name:      "transitions_total",
			Help:      "Demo message status transitions.",
		},
		[]string{"status"},
	)

	generationDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "helpflow",
			Subsystem: "messages",
			Name:      "generation_duration_seconds",
			Help:      "Latency of LLM generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 10), // 250ms to ~2m
		},
	)

	subscriptionUpdates = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "helpflow",
			Subsystem: "billing",
			Name:      "subscription_updates_total",
			Help:      "Subscription status writes by resulting status and whether they applied.",
		},
		[]string{"status", "applied"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

func RecordWebhook(source, eventType, outcome string) {
	webhookEvents.WithLabelValues(source, eventType, outcome).Inc()
}

func RecordTransition(status string) {
	messageTransitions.WithLabelValues(status).Inc()
}

func ObserveGeneration(seconds float64) {
	generationDuration.Observe(seconds)
}

func RecordSubscriptionUpdate(status string, applied bool) {
	label := "false"
	if applied {
		label = "true"
	}
	subscriptionUpdates.WithLabelValues(status, label).Inc()
}
