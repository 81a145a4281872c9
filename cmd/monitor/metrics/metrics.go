// Package metrics provides Prometheus metrics instrumentation for the monitor.
//
// It exposes operational metrics about upstream fetching, severity
// evaluation, and alert dispatch. All metrics are exposed via the
// /metrics HTTP endpoint for Prometheus scraping.
//
// Metrics exposed:
//   - gold_monitor_fetches_total: Counter of fetch attempts by monitor and result
//   - gold_monitor_fetch_retries_total: Counter of in-cycle fetch retries
//   - gold_monitor_transitions_total: Counter of severity transitions by monitor
//   - gold_monitor_dispatch_failures_total: Counter of alert deliveries abandoned after retry
//   - gold_monitor_current_severity: Gauge of current severity level per monitor
//   - gold_monitor_last_value: Gauge of the last observed value per monitor
//   - gold_monitor_observation_age_seconds: Gauge of the newest observation's age
//   - gold_monitor_cycle_duration_seconds: Histogram of full poll cycle durations
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/hargaemas/gold-monitor/pkg/storage"
)

type Metrics struct {
	FetchesTotal          *prometheus.CounterVec
	FetchRetriesTotal     *prometheus.CounterVec
	TransitionsTotal      *prometheus.CounterVec
	DispatchFailuresTotal *prometheus.CounterVec
	CurrentSeverity       *prometheus.GaugeVec
	LastValue             *prometheus.GaugeVec
	ObservationAge        *prometheus.GaugeVec
	CycleDuration         *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		FetchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gold_monitor_fetches_total",
			Help: "Total number of fetch attempts by monitor and result (success, transient, invalid)",
		}, []string{"monitor", "result"}),

		FetchRetriesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gold_monitor_fetch_retries_total",
			Help: "Total number of in-cycle fetch retries by monitor",
		}, []string{"monitor"}),

		TransitionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gold_monitor_transitions_total",
			Help: "Total number of severity transitions by monitor, from and to severity",
		}, []string{"monitor", "from", "to"}),

		DispatchFailuresTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gold_monitor_dispatch_failures_total",
			Help: "Total number of alert deliveries abandoned after the retry",
		}, []string{"monitor", "sink"}),

		CurrentSeverity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gold_monitor_current_severity",
			Help: "Current severity per monitor (0=nominal, 1=warning, 2=critical, -1=unknown)",
		}, []string{"monitor"}),

		LastValue: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gold_monitor_last_value",
			Help: "Last observed value per monitor",
		}, []string{"monitor"}),

		ObservationAge: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "gold_monitor_observation_age_seconds",
			Help: "Age of the newest observation per monitor",
		}, []string{"monitor"}),

		CycleDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gold_monitor_cycle_duration_seconds",
			Help:    "Duration of full poll cycles by monitor",
			Buckets: prometheus.DefBuckets,
		}, []string{"monitor"}),
	}
}

func (m *Metrics) RecordFetch(monitor, result string) {
	m.FetchesTotal.WithLabelValues(monitor, result).Inc()
}

func (m *Metrics) RecordRetry(monitor string) {
	m.FetchRetriesTotal.WithLabelValues(monitor).Inc()
}

func (m *Metrics) RecordTransition(monitor string, from, to storage.Severity) {
	m.TransitionsTotal.WithLabelValues(monitor, string(from), string(to)).Inc()
}

func (m *Metrics) RecordDispatchFailure(monitor, sink string) {
	m.DispatchFailuresTotal.WithLabelValues(monitor, sink).Inc()
}

func (m *Metrics) SetSeverity(monitor string, sev storage.Severity) {
	m.CurrentSeverity.WithLabelValues(monitor).Set(severityValue(sev))
}

func (m *Metrics) SetLastValue(monitor string, value float64) {
	m.LastValue.WithLabelValues(monitor).Set(value)
}

func (m *Metrics) SetObservationAge(monitor string, seconds float64) {
	m.ObservationAge.WithLabelValues(monitor).Set(seconds)
}

func (m *Metrics) ObserveCycle(monitor string, seconds float64) {
	m.CycleDuration.WithLabelValues(monitor).Observe(seconds)
}

func severityValue(sev storage.Severity) float64 {
	switch sev {
	case storage.SeverityNominal:
		return 0
	case storage.SeverityWarning:
		return 1
	case storage.SeverityCritical:
		return 2
	default:
		return -1
	}
}
