package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API and the
// volunteering workflows.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	enrollReviews   *prometheus.CounterVec
	hoursReviews    *prometheus.CounterVec
	checkins        prometheus.Counter
	certificates    prometheus.Counter
	mailQueueDepth  prometheus.Gauge
}

// NewMetricsService registers the collectors on a private registry.
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

	enrollReviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_reviews_total",
		Help: "Enrollment review decisions by outcome",
	}, []string{"outcome"})

	hoursReviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hours_reviews_total",
		Help: "Hours review decisions by outcome",
	}, []string{"outcome"})

	checkins := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "session_checkins_total",
		Help: "Successful QR session check-ins",
	})

	certificates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "certificates_issued_total",
		Help: "Certificates issued",
	})

	mailQueueDepth := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mail_queue_depth",
		Help: "Emails waiting in the delivery queue",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, enrollReviews, hoursReviews, checkins, certificates, mailQueueDepth, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		enrollReviews:   enrollReviews,
		hoursReviews:    hoursReviews,
		checkins:        checkins,
		certificates:    certificates,
		mailQueueDepth:  mailQueueDepth,
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

// ObserveHTTPRequest records request duration and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordEnrollmentReview counts a review decision by outcome label.
func (m *MetricsService) RecordEnrollmentReview(outcome string) {
	if m == nil {
		return
	}
	m.enrollReviews.WithLabelValues(outcome).Inc()
}

// RecordHoursReview counts an hours decision by outcome label.
func (m *MetricsService) RecordHoursReview(outcome string) {
	if m == nil {
		return
	}
	m.hoursReviews.WithLabelValues(outcome).Inc()
}

// RecordCheckin counts a successful session check-in.
func (m *MetricsService) RecordCheckin() {
	if m == nil {
		return
	}
	m.checkins.Inc()
}

// RecordCertificateIssued counts one issued certificate.
func (m *MetricsService) RecordCertificateIssued() {
	if m == nil {
		return
	}
	m.certificates.Inc()
}

// SetMailQueueDepth reports the pending email count.
func (m *MetricsService) SetMailQueueDepth(depth int) {
	if m == nil {
		return
	}
	m.mailQueueDepth.Set(float64(depth))
}
