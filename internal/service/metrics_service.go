package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/scolarite-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	storeDuration   *prometheus.HistogramVec
	registrations   *prometheus.CounterVec
	payments        prometheus.Counter
	paymentAmount   prometheus.Counter
	importRows      *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	storeOpCount         uint64
	storeDurationTotal   uint64
	registrationCount    uint64
	paymentCount         uint64
	amountCollected      int64
	importedCount        uint64
	skippedCount         uint64
	notifySent           uint64
	notifyFailed         uint64
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

	storeDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dataset_store_duration_seconds",
		Help:    "Duration of dataset load and save operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "students_registered_total",
		Help: "Students registered, by group",
	}, []string{"group"})

	payments := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_recorded_total",
		Help: "Payments appended to student ledgers",
	})

	paymentAmount := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "payments_amount_fcfa_total",
		Help: "Sum of recorded payments in FCFA",
	})

	importRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "import_rows_total",
		Help: "Spreadsheet rows processed by import, by outcome",
	}, []string{"outcome"})

	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_total",
		Help: "Payment notifications, by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, storeDuration, registrations, payments, paymentAmount, importRows, notifications, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		storeDuration:   storeDuration,
		registrations:   registrations,
		payments:        payments,
		paymentAmount:   paymentAmount,
		importRows:      importRows,
		notifications:   notifications,
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveStoreOperation records dataset store timing.
func (m *MetricsService) ObserveStoreOperation(op string, duration time.Duration) {
	if m == nil {
		return
	}
	m.storeDuration.WithLabelValues(op).Observe(duration.Seconds())
	atomic.AddUint64(&m.storeOpCount, 1)
	atomic.AddUint64(&m.storeDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordRegistration counts a new student.
func (m *MetricsService) RecordRegistration(group models.Group) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(string(group)).Inc()
	atomic.AddUint64(&m.registrationCount, 1)
}

// RecordPayment counts a payment and its amount.
func (m *MetricsService) RecordPayment(amount int64) {
	if m == nil {
		return
	}
	m.payments.Inc()
	m.paymentAmount.Add(float64(amount))
	atomic.AddUint64(&m.paymentCount, 1)
	atomic.AddInt64(&m.amountCollected, amount)
}

// RecordImport counts imported and skipped rows.
func (m *MetricsService) RecordImport(imported, skipped int) {
	if m == nil {
		return
	}
	m.importRows.WithLabelValues("imported").Add(float64(imported))
	m.importRows.WithLabelValues("skipped").Add(float64(skipped))
	atomic.AddUint64(&m.importedCount, uint64(imported))
	atomic.AddUint64(&m.skippedCount, uint64(skipped))
}

// RecordNotification counts a notification outcome.
func (m *MetricsService) RecordNotification(delivered bool) {
	if m == nil {
		return
	}
	if delivered {
		m.notifications.WithLabelValues("sent").Inc()
		atomic.AddUint64(&m.notifySent, 1)
		return
	}
	m.notifications.WithLabelValues("failed").Inc()
	atomic.AddUint64(&m.notifyFailed, 1)
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	storeOps := atomic.LoadUint64(&m.storeOpCount)
	storeDuration := atomic.LoadUint64(&m.storeDurationTotal)

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgStoreMs float64
	if storeOps > 0 {
		avgStoreMs = float64(storeDuration) / float64(storeOps) / float64(time.Millisecond)
	}

	return models.SystemMetrics{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		StoreOperations:          storeOps,
		AverageStoreDurationMs:   avgStoreMs,
		Registrations:            atomic.LoadUint64(&m.registrationCount),
		Payments:                 atomic.LoadUint64(&m.paymentCount),
		AmountCollected:          atomic.LoadInt64(&m.amountCollected),
		ImportedRows:             atomic.LoadUint64(&m.importedCount),
		SkippedRows:              atomic.LoadUint64(&m.skippedCount),
		NotificationsSent:        atomic.LoadUint64(&m.notifySent),
		NotificationsFailed:      atomic.LoadUint64(&m.notifyFailed),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
