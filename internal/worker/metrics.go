package worker

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metrics struct {
	registry           *prometheus.Registry
	jobsTotal          *prometheus.CounterVec
	jobDuration        *prometheus.HistogramVec
	activeJobs         prometheus.Gauge
	progressUpdates    prometheus.Counter
	svgBytes           prometheus.Counter
	webhookFailures    *prometheus.CounterVec
	pathsTotal         prometheus.Counter
	sourceBytesTotal   prometheus.Counter
	computeTimeMSTotal prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &metrics{
		registry: registry,
		jobsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rv0_worker_jobs_total",
			Help: "Total simulation runs by final status.",
		}, []string{"status"}),
		jobDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "rv0_worker_job_duration_seconds",
			Help:    "Wall time of each simulation run.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"status"}),
		activeJobs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "rv0_worker_active_jobs",
			Help: "Simulation runs currently ticking.",
		}),
		progressUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rv0_worker_progress_updates_total",
			Help: "Progress snapshots persisted by the worker.",
		}),
		svgBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rv0_worker_svg_bytes_total",
			Help: "Bytes of SVG markup written to storage.",
		}),
		webhookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "rv0_worker_webhook_failures_total",
			Help: "Webhook deliveries that exhausted their retries.",
		}, []string{"event"}),
		pathsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rv0_usage_paths_total",
			Help: "Total reported SVG paths across successful runs.",
		}),
		sourceBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rv0_usage_source_bytes_total",
			Help: "Total uploaded bytes across successful runs.",
		}),
		computeTimeMSTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "rv0_usage_compute_time_ms_total",
			Help: "Total simulated processing time in milliseconds across successful runs.",
		}),
	}

	registry.MustRegister(
		m.jobsTotal,
		m.jobDuration,
		m.activeJobs,
		m.progressUpdates,
		m.svgBytes,
		m.webhookFailures,
		m.pathsTotal,
		m.sourceBytesTotal,
		m.computeTimeMSTotal,
	)
	return m
}

func (m *metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
