package segsync

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics manages Prometheus metrics for the synchronizer. A nil *Metrics is
// valid and records nothing, so callers that don't scrape can skip wiring it.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal     *prometheus.CounterVec
	MembersFetched prometheus.Gauge
	EventsTotal    *prometheus.CounterVec
	DeltaTotal     *prometheus.CounterVec
	SnapshotSize   prometheus.Gauge
	SyncsTotal     *prometheus.CounterVec
	SyncDuration   prometheus.Histogram
}

// NewMetrics creates a metrics manager with its own registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		FetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segsync_fetch_total",
			Help: "Membership fetches by outcome",
		}, []string{"status"}),

		MembersFetched: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "segsync_members_fetched",
			Help: "Member count of the last successful fetch",
		}),

		EventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segsync_events_total",
			Help: "Lifecycle events emitted by direction and outcome",
		}, []string{"direction", "status"}),

		DeltaTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segsync_delta_members_total",
			Help: "Members that joined or left across all runs",
		}, []string{"direction"}),

		SnapshotSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "segsync_snapshot_members",
			Help: "Member count of the last committed snapshot",
		}),

		SyncsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "segsync_syncs_total",
			Help: "Completed sync cycles by result",
		}, []string{"result"}),

		SyncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "segsync_sync_duration_seconds",
			Help:    "End-to-end sync cycle duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	registry.MustRegister(
		m.FetchTotal,
		m.MembersFetched,
		m.EventsTotal,
		m.DeltaTotal,
		m.SnapshotSize,
		m.SyncsTotal,
		m.SyncDuration,
	)

	return m
}

// Handler returns an HTTP handler exposing the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) observeFetch(ok bool, members int) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(statusLabel(ok)).Inc()
	if ok {
		m.MembersFetched.Set(float64(members))
	}
}

func (m *Metrics) observeEmit(dir Direction, ok bool) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(string(dir), statusLabel(ok)).Inc()
}

func (m *Metrics) observeDelta(dir Direction, n int) {
	if m == nil {
		return
	}
	m.DeltaTotal.WithLabelValues(string(dir)).Add(float64(n))
}

func (m *Metrics) observeSnapshotSize(n int) {
	if m == nil {
		return
	}
	m.SnapshotSize.Set(float64(n))
}

func (m *Metrics) observeSync(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.SyncsTotal.WithLabelValues(statusLabel(ok)).Inc()
	m.SyncDuration.Observe(d.Seconds())
}

func statusLabel(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}
