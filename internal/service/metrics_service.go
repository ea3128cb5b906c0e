package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec

	homeworkCreated prometheus.Counter
	proofsUploaded  prometheus.Counter
	proofsRemoved   prometheus.Counter
	completions     prometheus.Counter
	votesRecorded   prometheus.Counter
	fanOutDelivered prometheus.Counter
}

// NewMetricsService registers the core collectors.
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

	homeworkCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homework_created_total",
		Help: "Total homework items posted",
	})
	proofsUploaded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proofs_uploaded_total",
		Help: "Total proof images accepted",
	})
	proofsRemoved := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proofs_removed_total",
		Help: "Total proofs removed by the voting threshold",
	})
	completions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "homework_completions_total",
		Help: "Total homework completions awarded",
	})
	votesRecorded := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "proof_votes_total",
		Help: "Total proof validity votes recorded",
	})
	fanOutDelivered := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notifications_delivered_total",
		Help: "Total notifications created by class fan-out",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, homeworkCreated, proofsUploaded, proofsRemoved, completions, votesRecorded, fanOutDelivered, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		homeworkCreated: homeworkCreated,
		proofsUploaded:  proofsUploaded,
		proofsRemoved:   proofsRemoved,
		completions:     completions,
		votesRecorded:   votesRecorded,
		fanOutDelivered: fanOutDelivered,
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": fmt.Sprintf("%d", status),
	}
	m.requestDuration.With(labels).Observe(duration.Seconds())
	m.requestTotal.With(labels).Inc()
}

func (m *MetricsService) HomeworkCreated() {
	if m != nil {
		m.homeworkCreated.Inc()
	}
}

func (m *MetricsService) ProofUploaded() {
	if m != nil {
		m.proofsUploaded.Inc()
	}
}

func (m *MetricsService) ProofRemoved() {
	if m != nil {
		m.proofsRemoved.Inc()
	}
}

func (m *MetricsService) CompletionAwarded() {
	if m != nil {
		m.completions.Inc()
	}
}

func (m *MetricsService) VoteRecorded() {
	if m != nil {
		m.votesRecorded.Inc()
	}
}

func (m *MetricsService) NotificationDelivered() {
	if m != nil {
		m.fanOutDelivered.Inc()
	}
}
