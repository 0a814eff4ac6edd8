package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry of the API.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	cacheWrite       prometheus.Histogram
	rosterChanges    *prometheus.CounterVec
	attendanceWrites *prometheus.CounterVec
	importJobs       *prometheus.CounterVec
	uploadedBytes    *prometheus.CounterVec
	capacityWarnings prometheus.Counter
	versionConflicts prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Cache lookups by result",
		}, []string{"result"}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
			Buckets: prometheus.DefBuckets,
		}),
		rosterChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cohort_roster_changes_total",
			Help: "Students added to or removed from cohort rosters",
		}, []string{"operation"}),
		attendanceWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_writes_total",
			Help: "Attendance records written by status",
		}, []string{"status"}),
		importJobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "attendance_import_jobs_total",
			Help: "Emargement imports by final state",
		}, []string{"state"}),
		uploadedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "session_upload_bytes_total",
			Help: "Bytes stored for session documents",
		}, []string{"kind"}),
		capacityWarnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cohort_capacity_warnings_total",
			Help: "Enrollments that left a cohort over its planned headcount",
		}),
		versionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "attendance_version_conflicts_total",
			Help: "Attendance upserts rejected for a stale expected version",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.cacheLookups, m.cacheWrite, m.rosterChanges,
		m.attendanceWrites, m.importJobs, m.uploadedBytes, m.capacityWarnings, m.versionConflicts, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheLookup counts a cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveCacheWrite tracks the duration of cache writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordRosterChange counts students moved by an enroll or unenroll.
func (m *MetricsService) RecordRosterChange(operation string, count int, overCapacity bool) {
	if m == nil {
		return
	}
	m.rosterChanges.WithLabelValues(operation).Add(float64(count))
	if overCapacity {
		m.capacityWarnings.Inc()
	}
}

// RecordAttendanceWrite counts a stored attendance record.
func (m *MetricsService) RecordAttendanceWrite(status string) {
	if m == nil {
		return
	}
	m.attendanceWrites.WithLabelValues(status).Inc()
}

// RecordVersionConflict counts a rejected stale upsert.
func (m *MetricsService) RecordVersionConflict() {
	if m == nil {
		return
	}
	m.versionConflicts.Inc()
}

// RecordImportJob counts an import job reaching a final state.
func (m *MetricsService) RecordImportJob(state string) {
	if m == nil {
		return
	}
	m.importJobs.WithLabelValues(state).Inc()
}

// RecordUpload counts stored document bytes.
func (m *MetricsService) RecordUpload(kind string, size int64) {
	if m == nil {
		return
	}
	m.uploadedBytes.WithLabelValues(kind).Add(float64(size))
}
