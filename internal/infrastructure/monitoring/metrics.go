// Package monitoring exposes Prometheus metrics for the launcher:
// install runs, server launches, and streamed event volume.
package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Install metrics
	InstallsTotal *prometheus.CounterVec

	// Launch metrics
	LaunchesTotal *prometheus.CounterVec
	ServersActive prometheus.Gauge

	// Stream metrics
	StreamEvents *prometheus.CounterVec

	// System metrics
	Uptime    prometheus.Gauge
	startTime time.Time
}

// New creates and registers all metrics.
func New() *Metrics {
	m := &Metrics{
		RequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gennaker_http_requests_total",
			Help: "Total HTTP requests on the control API",
		}, []string{"method", "path", "status"}),

		RequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gennaker_http_request_duration_seconds",
			Help:    "Control API request duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),

		InstallsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gennaker_installs_total",
			Help: "Installer runs by result",
		}, []string{"result"}),

		LaunchesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gennaker_launches_total",
			Help: "Notebook server launches by result",
		}, []string{"result"}),

		ServersActive: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gennaker_servers_active",
			Help: "Notebook servers currently supervised",
		}),

		StreamEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "gennaker_stream_events_total",
			Help: "Process lifecycle events delivered, by type",
		}, []string{"type"}),

		Uptime: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "gennaker_uptime_seconds",
			Help: "Launcher uptime in seconds",
		}),

		startTime: time.Now(),
	}

	go m.updateUptime()
	return m
}

// RecordHTTPRequest records one control API request.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordInstall records an installer run outcome.
func (m *Metrics) RecordInstall(result string) {
	m.InstallsTotal.WithLabelValues(result).Inc()
}

// RecordLaunch records a launch outcome.
func (m *Metrics) RecordLaunch(result string) {
	m.LaunchesTotal.WithLabelValues(result).Inc()
}

// RecordStreamEvent records one delivered process event.
func (m *Metrics) RecordStreamEvent(eventType string) {
	m.StreamEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) updateUptime() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		m.Uptime.Set(time.Since(m.startTime).Seconds())
	}
}
