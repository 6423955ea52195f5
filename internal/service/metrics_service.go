package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP traffic and
// scheduling events.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	rotationsCreated  prometheus.Counter
	rotationsRemoved  prometheus.Counter
	assignmentsTotal  *prometheus.CounterVec
	capacityConflicts prometheus.Counter
}

// NewMetricsService registers the service collectors.
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

	rotationsCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotations_created_total",
		Help: "Total rotations created",
	})

	rotationsRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rotations_removed_total",
		Help: "Total rotations removed",
	})

	assignmentsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "student_assignments_total",
		Help: "Total student date assignments by outcome",
	}, []string{"mode"})

	capacityConflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "capacity_conflicts_total",
		Help: "Total assignments refused for exhausted slot capacity",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, rotationsCreated, rotationsRemoved, assignmentsTotal, capacityConflicts, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		rotationsCreated:  rotationsCreated,
		rotationsRemoved:  rotationsRemoved,
		assignmentsTotal:  assignmentsTotal,
		capacityConflicts: capacityConflicts,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, fmt.Sprintf("%d", status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// RecordRotationCreated counts a successful rotation creation.
func (s *MetricsService) RecordRotationCreated() {
	s.rotationsCreated.Inc()
}

// RecordRotationRemoved counts a successful rotation removal.
func (s *MetricsService) RecordRotationRemoved() {
	s.rotationsRemoved.Inc()
}

// RecordAssignment counts a placement write, split by create vs update.
func (s *MetricsService) RecordAssignment(created bool) {
	mode := "updated"
	if created {
		mode = "created"
	}
	s.assignmentsTotal.WithLabelValues(mode).Inc()
}

// RecordCapacityConflict counts an assignment refused on capacity grounds.
func (s *MetricsService) RecordCapacityConflict() {
	s.capacityConflicts.Inc()
}
