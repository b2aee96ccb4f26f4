package utils

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics содержит метрики приложения
type Metrics struct {
	registry *prometheus.Registry

	// Метрики запросов
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	// Метрики сканирования сроков
	scans        prometheus.Counter
	scanDuration prometheus.Histogram
	warnings     *prometheus.GaugeVec

	// Метрики договоров
	contractOps *prometheus.CounterVec

	// Метрики ошибок
	errors *prometheus.CounterVec
}

var (
	metrics     *Metrics
	metricsOnce sync.Once
)

// GetMetrics возвращает экземпляр метрик
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metrics = NewMetrics()
	})
	return metrics
}

// NewMetrics создает набор метрик с собственным реестром
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		scans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "warning_scans_total",
			Help: "Total number of deadline warning scans",
		}),
		scanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "warning_scan_duration_seconds",
			Help:    "Duration of deadline warning scans in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		warnings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "contract_warnings",
			Help: "Warnings produced by the last scan, by type and triage status",
		}, []string{"type", "status"}),
		contractOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "contract_operations_total",
			Help: "Contract operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "app_errors_total",
			Help: "Errors by kind",
		}, []string{"kind"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.requests,
		m.requestDuration,
		m.scans,
		m.scanDuration,
		m.warnings,
		m.contractOps,
		m.errors,
	)
	return m
}

// RecordRequest записывает метрики запроса
func (m *Metrics) RecordRequest(method, path string, status int, duration time.Duration) {
	m.requests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordScan записывает результат сканирования: число предупреждений по типу и статусу
func (m *Metrics) RecordScan(duration time.Duration, counts map[[2]string]int) {
	m.scans.Inc()
	m.scanDuration.Observe(duration.Seconds())
	m.warnings.Reset()
	for key, n := range counts {
		m.warnings.WithLabelValues(key[0], key[1]).Set(float64(n))
	}
}

// RecordContractOperation записывает операцию с договором
func (m *Metrics) RecordContractOperation(operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.contractOps.WithLabelValues(operation, outcome).Inc()
}

// RecordError записывает метрики ошибки
func (m *Metrics) RecordError(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	m.errors.WithLabelValues(kind).Inc()
}

// Registry возвращает реестр метрик
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler отдает метрики в формате Prometheus
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
