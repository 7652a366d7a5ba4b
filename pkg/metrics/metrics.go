// Package metrics provides Prometheus metrics for the toolkit's three
// subsystems (device lifecycle, optical burn, search), using a
// dedicated registry instead of the global DefaultRegisterer so a
// daemon can construct a fresh one per process without panicking on
// duplicate registration.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dfm_toolkit"

// Metrics holds every Prometheus collector exposed by the daemon.
type Metrics struct {
	registry *prometheus.Registry

	// Device lifecycle (C1/C2).
	DeviceEventsTotal  *prometheus.CounterVec
	MountOpsTotal      *prometheus.CounterVec
	MountOpsDuration   *prometheus.HistogramVec
	DevicesTracked     *prometheus.GaugeVec

	// Network mount (C3).
	NetworkMountsTotal      *prometheus.CounterVec
	CredentialPromptsTotal  prometheus.Counter
	CredentialsSavedTotal   *prometheus.CounterVec

	// Optical engine (C4).
	BurnJobsTotal    *prometheus.CounterVec
	BurnJobProgress  *prometheus.GaugeVec

	// Search engine (C5).
	SearchesTotal      *prometheus.CounterVec
	SearchDuration     *prometheus.HistogramVec
	SearchResultsTotal *prometheus.CounterVec
}

// New creates a Metrics instance with every collector registered against
// a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,

		DeviceEventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_events_total",
			Help:      "Total number of device lifecycle events by kind and type.",
		}, []string{"kind", "event"}),

		MountOpsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mount_operations_total",
			Help:      "Total number of mount/unmount/eject operations by operation and status.",
		}, []string{"operation", "status"}),

		MountOpsDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "mount_operation_duration_seconds",
			Help:      "Duration of mount/unmount/eject operations in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 25},
		}, []string{"operation"}),

		DevicesTracked: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "devices_tracked",
			Help:      "Number of devices currently tracked by the registry, by kind.",
		}, []string{"kind"}),

		NetworkMountsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "network_mounts_total",
			Help:      "Total number of network mount attempts by backend and status.",
		}, []string{"backend", "status"}),

		CredentialPromptsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_prompts_total",
			Help:      "Total number of times the caller was prompted for network mount credentials.",
		}),

		CredentialsSavedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credentials_saved_total",
			Help:      "Total number of credentials saved to the secret store by scope.",
		}, []string{"scope"}),

		BurnJobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "burn_jobs_total",
			Help:      "Total number of optical burn/erase/verify jobs by kind and outcome.",
		}, []string{"kind", "outcome"}),

		BurnJobProgress: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "burn_job_progress_percent",
			Help:      "Progress percent of the currently running burn job, by device.",
		}, []string{"device"}),

		SearchesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Total number of searches executed by search type and outcome.",
		}, []string{"search_type", "outcome"}),

		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Duration of a search from start to terminal signal.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"search_type"}),

		SearchResultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Total number of results emitted by search type.",
		}, []string{"search_type"}),
	}

	reg.MustRegister(
		m.DeviceEventsTotal,
		m.MountOpsTotal,
		m.MountOpsDuration,
		m.DevicesTracked,
		m.NetworkMountsTotal,
		m.CredentialPromptsTotal,
		m.CredentialsSavedTotal,
		m.BurnJobsTotal,
		m.BurnJobProgress,
		m.SearchesTotal,
		m.SearchDuration,
		m.SearchResultsTotal,
	)

	return m
}

// Handler returns the HTTP handler that serves this registry in the
// Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
