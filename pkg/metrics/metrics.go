package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all returns-service metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Upstream API metrics
	UpstreamRequests        *prometheus.CounterVec
	UpstreamRequestDuration *prometheus.HistogramVec
	UpstreamRetries         *prometheus.CounterVec

	// Business metrics
	OrdersReviewed       *prometheus.CounterVec
	ItemsClassified      *prometheus.CounterVec
	ResponsesComposed    *prometheus.CounterVec
	InvoicesProcessed    *prometheus.CounterVec
	PicklistRefreshes    *prometheus.CounterVec
	PicklistRowsEmitted  prometheus.Gauge

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
	Subsystem   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "returns",
		Subsystem:   serviceName,
	}
}

// New creates a new Metrics instance
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()

	// Register standard Go metrics
	registry.MustRegister(prometheus.NewGoCollector())
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	// HTTP metrics
	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)

	m.HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "http_requests_in_flight",
			Help:        "Number of HTTP requests currently being processed",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Upstream API metrics
	m.UpstreamRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "upstream_requests_total",
			Help:      "Total number of outbound upstream API requests",
		},
		[]string{"service", "upstream", "operation", "status"},
	)

	m.UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: config.Namespace,
			Name:      "upstream_request_duration_seconds",
			Help:      "Upstream API request duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "upstream", "operation"},
	)

	m.UpstreamRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "upstream_retries_total",
			Help:      "Total number of upstream request retry attempts",
		},
		[]string{"service", "upstream", "operation"},
	)

	// Business metrics
	m.OrdersReviewed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "orders_reviewed_total",
			Help:      "Total number of orders run through the returns review",
		},
		[]string{"service", "profile"},
	)

	m.ItemsClassified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "items_classified_total",
			Help:      "Total number of line items classified for eligibility",
		},
		[]string{"service", "profile", "status"},
	)

	m.ResponsesComposed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "responses_composed_total",
			Help:      "Total number of customer responses composed",
		},
		[]string{"service", "segment"},
	)

	m.InvoicesProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "invoices_processed_total",
			Help:      "Total number of orders pushed to the invoicing vendor",
		},
		[]string{"service", "status"},
	)

	m.PicklistRefreshes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "picklist_refreshes_total",
			Help:      "Total number of pick list refresh runs",
		},
		[]string{"service", "status"},
	)

	m.PicklistRowsEmitted = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Name:        "picklist_rows",
			Help:        "Number of rows in the most recent pick list",
			ConstLabels: prometheus.Labels{"service": config.ServiceName},
		},
	)

	// Circuit breaker metrics
	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"service", "name"},
	)

	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: config.Namespace,
			Name:      "circuit_breaker_trips_total",
			Help:      "Total number of circuit breaker trips",
		},
		[]string{"service", "name"},
	)

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.UpstreamRequests,
		m.UpstreamRequestDuration,
		m.UpstreamRetries,
		m.OrdersReviewed,
		m.ItemsClassified,
		m.ResponsesComposed,
		m.InvoicesProcessed,
		m.PicklistRefreshes,
		m.PicklistRowsEmitted,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the prometheus registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// RecordUpstreamRequest records an outbound API call
func (m *Metrics) RecordUpstreamRequest(upstream, operation string, status int, duration time.Duration) {
	m.UpstreamRequests.WithLabelValues(m.serviceName, upstream, operation, strconv.Itoa(status)).Inc()
	m.UpstreamRequestDuration.WithLabelValues(m.serviceName, upstream, operation).Observe(duration.Seconds())
}

// RecordUpstreamRetry records a retry attempt against an upstream
func (m *Metrics) RecordUpstreamRetry(upstream, operation string) {
	m.UpstreamRetries.WithLabelValues(m.serviceName, upstream, operation).Inc()
}

// RecordOrderReviewed records an order review run
func (m *Metrics) RecordOrderReviewed(profile string) {
	m.OrdersReviewed.WithLabelValues(m.serviceName, profile).Inc()
}

// RecordItemClassified records a line item classification
func (m *Metrics) RecordItemClassified(profile, status string) {
	m.ItemsClassified.WithLabelValues(m.serviceName, profile, status).Inc()
}

// RecordResponseComposed records a composed customer response
func (m *Metrics) RecordResponseComposed(segment string) {
	m.ResponsesComposed.WithLabelValues(m.serviceName, segment).Inc()
}

// RecordInvoiceProcessed records an invoicing attempt outcome
func (m *Metrics) RecordInvoiceProcessed(status string) {
	m.InvoicesProcessed.WithLabelValues(m.serviceName, status).Inc()
}

// RecordPicklistRefresh records a pick list refresh run
func (m *Metrics) RecordPicklistRefresh(success bool, rows int) {
	status := "success"
	if !success {
		status = "error"
	}
	m.PicklistRefreshes.WithLabelValues(m.serviceName, status).Inc()
	if success {
		m.PicklistRowsEmitted.Set(float64(rows))
	}
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}
