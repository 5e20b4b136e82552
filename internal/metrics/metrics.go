// Package metrics provides the Prometheus registry for the settlement service.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "race_settlement"

// Global registry instance
var (
	registry *prometheus.Registry
	once     sync.Once
)

// Counter metrics
var (
	BetsPlacedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_placed_total",
		Help:      "Total number of bets accepted",
	})
	BetsRejectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_rejected_total",
		Help:      "Total number of bets rejected, by error code",
	}, []string{"reason"})
	BetsSettledTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bets_settled_total",
		Help:      "Total number of bets settled, by outcome",
	}, []string{"status"})
	RacesSettledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "races_settled_total",
		Help:      "Total number of races settled",
	})
	SettlementFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "settlement_failures_total",
		Help:      "Total number of failed settlement attempts, by error code",
	}, []string{"reason"})
	PayoutTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payout_total",
		Help:      "Sum of all payouts in currency units",
	})
	EventPublishFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "event_publish_failures_total",
		Help:      "Total number of events that failed to publish after commit",
	}, []string{"event_type"})
)

// Histogram metrics
var (
	BetPlacementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "bet_placement_latency_seconds",
		Help:      "Latency of bet placement operations in seconds",
		Buckets:   prometheus.DefBuckets,
	})
	SettlementDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "settlement_duration_seconds",
		Help:      "Duration of race settlement in seconds",
		Buckets:   prometheus.DefBuckets,
	})
)

// InitRegistry initializes the global Prometheus registry.
func InitRegistry() *prometheus.Registry {
	once.Do(func() {
		registry = prometheus.NewRegistry()

		registry.MustRegister(collectors.NewGoCollector())
		registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

		registry.MustRegister(BetsPlacedTotal)
		registry.MustRegister(BetsRejectedTotal)
		registry.MustRegister(BetsSettledTotal)
		registry.MustRegister(RacesSettledTotal)
		registry.MustRegister(SettlementFailuresTotal)
		registry.MustRegister(PayoutTotal)
		registry.MustRegister(EventPublishFailuresTotal)

		registry.MustRegister(BetPlacementLatency)
		registry.MustRegister(SettlementDuration)

		registry.MustRegister(HTTPRequestsTotal)
		registry.MustRegister(HTTPRequestDuration)
	})
	return registry
}

// GetRegistry returns the global Prometheus registry.
func GetRegistry() *prometheus.Registry {
	return InitRegistry()
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}

// RecordBetPlaced records an accepted bet.
func RecordBetPlaced(durationSeconds float64) {
	BetsPlacedTotal.Inc()
	BetPlacementLatency.Observe(durationSeconds)
}

// RecordBetRejected records a rejected bet.
func RecordBetRejected(reason string) {
	BetsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordRaceSettled records a completed settlement and the outcome of each bet.
func RecordRaceSettled(durationSeconds float64, won, lost int, payout int64) {
	RacesSettledTotal.Inc()
	SettlementDuration.Observe(durationSeconds)
	BetsSettledTotal.WithLabelValues("won").Add(float64(won))
	BetsSettledTotal.WithLabelValues("lost").Add(float64(lost))
	PayoutTotal.Add(float64(payout))
}

// RecordSettlementFailure records a settlement attempt that did not commit.
func RecordSettlementFailure(reason string) {
	SettlementFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordPublishFailure records an event that could not be delivered.
func RecordPublishFailure(eventType string) {
	EventPublishFailuresTotal.WithLabelValues(eventType).Inc()
}
