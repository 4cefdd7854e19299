// Package metrics exposes scheduler counters and histograms to Prometheus.
//
// Metrics are registered on a private registry owned by the [Metrics] value so that
// tests and multiple daemons in one process never collide on the default registerer.
// Every recording method is safe to call on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors for the scheduler.
type Metrics struct {
	registry *prometheus.Registry

	// Asset preloading
	AssetLoads       *prometheus.CounterVec
	AssetLoadLatency prometheus.Histogram
	AssetsTracked    prometheus.Gauge
	EmergencyLoads   prometheus.Counter

	// Adaptation
	AdaptationChecks  *prometheus.CounterVec
	AdaptationsByType *prometheus.CounterVec
	MonitoredAlarms   prometheus.Gauge

	// Notifications
	NotificationsScheduled prometheus.Counter
	NotificationsSkipped   *prometheus.CounterVec
	AlarmsFired            prometheus.Counter
}

// New registers every collector on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AssetLoads: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartwake_asset_loads_total",
			Help: "Critical asset fetch attempts by kind and result",
		}, []string{"kind", "result"}), // result: "success" or "failure"

		AssetLoadLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "smartwake_asset_load_duration_seconds",
			Help:    "Critical asset fetch latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
		}),

		AssetsTracked: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smartwake_assets_tracked",
			Help: "Number of critical assets currently tracked",
		}),

		EmergencyLoads: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartwake_emergency_preloads_total",
			Help: "Emergency preloads triggered by readiness checks",
		}),

		AdaptationChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartwake_adaptation_checks_total",
			Help: "Adaptation evaluations by outcome",
		}, []string{"outcome"}),

		AdaptationsByType: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartwake_adaptation_triggers_total",
			Help: "Adaptation triggers contributing to committed adjustments, by source",
		}, []string{"type"}),

		MonitoredAlarms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "smartwake_monitored_alarms",
			Help: "Alarms currently monitored for real-time adaptation",
		}),

		NotificationsScheduled: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartwake_notifications_scheduled_total",
			Help: "Platform notifications scheduled",
		}),

		NotificationsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "smartwake_notifications_skipped_total",
			Help: "Occurrences skipped by conditional rules",
		}, []string{"rule"}),

		AlarmsFired: factory.NewCounter(prometheus.CounterOpts{
			Name: "smartwake_alarms_fired_total",
			Help: "Alarm occurrences detected as fired",
		}),
	}
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) AssetLoaded(kind string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.AssetLoads.WithLabelValues(kind, result).Inc()
	m.AssetLoadLatency.Observe(d.Seconds())
}

func (m *Metrics) SetAssetsTracked(n int) {
	if m == nil {
		return
	}
	m.AssetsTracked.Set(float64(n))
}

func (m *Metrics) EmergencyPreload() {
	if m == nil {
		return
	}
	m.EmergencyLoads.Inc()
}

func (m *Metrics) AdaptationCheck(outcome string) {
	if m == nil {
		return
	}
	m.AdaptationChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AdaptationTrigger(kind string) {
	if m == nil {
		return
	}
	m.AdaptationsByType.WithLabelValues(kind).Inc()
}

func (m *Metrics) SetMonitored(n int) {
	if m == nil {
		return
	}
	m.MonitoredAlarms.Set(float64(n))
}

func (m *Metrics) NotificationScheduled() {
	if m == nil {
		return
	}
	m.NotificationsScheduled.Inc()
}

func (m *Metrics) NotificationSkipped(rule string) {
	if m == nil {
		return
	}
	m.NotificationsSkipped.WithLabelValues(rule).Inc()
}

func (m *Metrics) AlarmFired() {
	if m == nil {
		return
	}
	m.AlarmsFired.Inc()
}
