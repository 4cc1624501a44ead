// Package metrics exposes prometheus instruments for the upload pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type UploadMetrics struct {
	registry *prometheus.Registry

	runsTotal    *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	filesTotal   *prometheus.CounterVec
	bytesSent    prometheus.Counter
	fileDuration prometheus.Histogram
	stagedFiles  prometheus.Gauge
}

func NewUploadMetrics() *UploadMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "udin",
			Subsystem: "upload",
			Name:      "runs_total",
			Help:      "Upload runs by terminal state.",
		},
		[]string{"state"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "udin",
			Subsystem: "upload",
			Name:      "run_duration_seconds",
			Help:      "Wall time of an upload run by terminal state.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"state"},
	)
	filesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "udin",
			Subsystem: "upload",
			Name:      "files_total",
			Help:      "Files sent to the backend by result.",
		},
		[]string{"result"},
	)
	bytesSent := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "udin",
			Subsystem: "upload",
			Name:      "bytes_sent_total",
			Help:      "File content bytes accepted by the backend.",
		},
	)
	fileDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "udin",
			Subsystem: "upload",
			Name:      "file_duration_seconds",
			Help:      "Duration of a single file upload request.",
			Buckets:   prometheus.DefBuckets,
		},
	)
	stagedFiles := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "udin",
			Subsystem: "stage",
			Name:      "files",
			Help:      "Files currently held in the durable stage.",
		},
	)

	registry.MustRegister(runsTotal, runDuration, filesTotal, bytesSent, fileDuration, stagedFiles)

	return &UploadMetrics{
		registry:     registry,
		runsTotal:    runsTotal,
		runDuration:  runDuration,
		filesTotal:   filesTotal,
		bytesSent:    bytesSent,
		fileDuration: fileDuration,
		stagedFiles:  stagedFiles,
	}
}

func (m *UploadMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *UploadMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *UploadMetrics) FinishRun(state string, duration time.Duration) {
	m.runsTotal.WithLabelValues(state).Inc()
	m.runDuration.WithLabelValues(state).Observe(duration.Seconds())
}

func (m *UploadMetrics) FileUploaded(size int64, duration time.Duration) {
	m.filesTotal.WithLabelValues("success").Inc()
	m.bytesSent.Add(float64(size))
	m.fileDuration.Observe(duration.Seconds())
}

func (m *UploadMetrics) FileFailed(duration time.Duration) {
	m.filesTotal.WithLabelValues("error").Inc()
	m.fileDuration.Observe(duration.Seconds())
}

func (m *UploadMetrics) SetStaged(n int) {
	m.stagedFiles.Set(float64(n))
}
