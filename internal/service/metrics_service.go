package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry and the instruments the
// admissions pipeline reports into.
type MetricsService struct {
	registry *prometheus.Registry

	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	stageTransition *prometheus.CounterVec
	cacheOperations *prometheus.CounterVec
	queueDepth      *prometheus.GaugeVec
}

// NewMetricsService builds and registers all collectors on a private
// registry so tests can construct isolated instances.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	s := &MetricsService{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_http_requests_total",
			Help: "Total HTTP requests by method, path and status.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "admissions_http_request_duration_seconds",
			Help:    "HTTP request latency by method and path.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		stageTransition: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_stage_transitions_total",
			Help: "Committed stage transitions by from and to stage.",
		}, []string{"from_stage", "to_stage"}),
		cacheOperations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "admissions_cache_operations_total",
			Help: "Cache operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "admissions_queue_depth",
			Help: "Applications currently sitting in each stage.",
		}, []string{"stage"}),
	}
	registry.MustRegister(s.httpRequests, s.httpDuration, s.stageTransition, s.cacheOperations, s.queueDepth)
	return s
}

// Handler exposes the registry for the /metrics endpoint.
func (s *MetricsService) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records one completed HTTP request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	s.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	s.httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordStageTransition counts one committed transition.
func (s *MetricsService) RecordStageTransition(fromStage, toStage string) {
	s.stageTransition.WithLabelValues(fromStage, toStage).Inc()
}

// RecordCacheOperation counts one cache access.
func (s *MetricsService) RecordCacheOperation(operation, outcome string) {
	s.cacheOperations.WithLabelValues(operation, outcome).Inc()
}

// SetQueueDepth records the number of applications resting in a stage.
func (s *MetricsService) SetQueueDepth(stage string, depth int) {
	s.queueDepth.WithLabelValues(stage).Set(float64(depth))
}
