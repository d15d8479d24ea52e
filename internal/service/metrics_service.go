package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/trs-ewc-import/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	importRows      *prometheus.CounterVec
	importFiles     *prometheus.CounterVec
	importDuration  *prometheus.HistogramVec

	requestCount   uint64
	rowSuccess     uint64
	rowFailure     uint64
	filesProcessed uint64
	filesFailed    uint64
	filesSkipped   uint64
	lastFileUnix   int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ewc_import_rows_total",
		Help: "EWC Wales rows processed by file type and outcome",
	}, []string{"file_type", "outcome"})

	importFiles := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ewc_import_files_total",
		Help: "EWC Wales pickup files handled by file type and result",
	}, []string{"file_type", "result"})

	importDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ewc_import_file_duration_seconds",
		Help:    "Time spent importing one EWC Wales file",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300, 600},
	}, []string{"file_type"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, importRows, importFiles, importDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		importRows:      importRows,
		importFiles:     importFiles,
		importDuration:  importDuration,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// ObserveImportRow counts one ledger record.
func (m *MetricsService) ObserveImportRow(fileType models.ImportFileType, status models.IntegrationTransactionRecordStatus) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues(fileType.String(), string(status)).Inc()
	if status == models.IntegrationTransactionRecordStatusSuccess {
		atomic.AddUint64(&m.rowSuccess, 1)
	} else {
		atomic.AddUint64(&m.rowFailure, 1)
	}
}

// Import file results.
const (
	FileResultProcessed    = "processed"
	FileResultFailed       = "failed"
	FileResultUnrecognised = "unrecognised"
)

// ObserveImportFile records the outcome of one pickup file.
func (m *MetricsService) ObserveImportFile(fileType models.ImportFileType, result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.importFiles.WithLabelValues(fileType.String(), result).Inc()
	switch result {
	case FileResultProcessed:
		atomic.AddUint64(&m.filesProcessed, 1)
		m.importDuration.WithLabelValues(fileType.String()).Observe(duration.Seconds())
	case FileResultFailed:
		atomic.AddUint64(&m.filesFailed, 1)
	default:
		atomic.AddUint64(&m.filesSkipped, 1)
	}
	atomic.StoreInt64(&m.lastFileUnix, time.Now().UTC().Unix())
}

// Snapshot returns aggregated import counters.
func (m *MetricsService) Snapshot() models.ImportStats {
	if m == nil {
		return models.ImportStats{}
	}
	stats := models.ImportStats{
		RequestsTotal:     atomic.LoadUint64(&m.requestCount),
		RowsSucceeded:     atomic.LoadUint64(&m.rowSuccess),
		RowsFailed:        atomic.LoadUint64(&m.rowFailure),
		FilesProcessed:    atomic.LoadUint64(&m.filesProcessed),
		FilesFailed:       atomic.LoadUint64(&m.filesFailed),
		FilesUnrecognised: atomic.LoadUint64(&m.filesSkipped),
		Goroutines:        runtime.NumGoroutine(),
		GeneratedAt:       time.Now().UTC(),
	}
	if last := atomic.LoadInt64(&m.lastFileUnix); last > 0 {
		t := time.Unix(last, 0).UTC()
		stats.LastFileAt = &t
	}
	return stats
}
