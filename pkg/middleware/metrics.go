package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/backoffice-platform/returns-service/pkg/metrics"
)

// MetricsMiddleware creates middleware that records HTTP metrics
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Skip metrics endpoint to avoid recursion
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		defer m.DecrementHTTPRequestsInFlight()

		start := time.Now()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.FullPath() // Use route pattern, not actual path

		// If no route matched, use the raw path
		if path == "" {
			path = c.Request.URL.Path
		}

		m.RecordHTTPRequest(method, path, status, duration)
	}
}

// MetricsEndpoint returns a handler for the /metrics endpoint
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}

// BusinessMetrics provides helpers for recording business-specific metrics
type BusinessMetrics struct {
	metrics *metrics.Metrics
}

// NewBusinessMetrics creates a new BusinessMetrics helper
func NewBusinessMetrics(m *metrics.Metrics) *BusinessMetrics {
	return &BusinessMetrics{metrics: m}
}

// RecordOrderReviewed records an order review run
func (b *BusinessMetrics) RecordOrderReviewed(profile string) {
	b.metrics.RecordOrderReviewed(profile)
}

// RecordItemClassified records a line item classification outcome
func (b *BusinessMetrics) RecordItemClassified(profile, status string) {
	b.metrics.RecordItemClassified(profile, status)
}

// RecordResponseComposed records a composed customer response
func (b *BusinessMetrics) RecordResponseComposed(segment string) {
	b.metrics.RecordResponseComposed(segment)
}

// RecordInvoiceProcessed records an invoicing outcome
func (b *BusinessMetrics) RecordInvoiceProcessed(status string) {
	b.metrics.RecordInvoiceProcessed(status)
}

// RecordPicklistRefresh records a pick list refresh run
func (b *BusinessMetrics) RecordPicklistRefresh(success bool, rows int) {
	b.metrics.RecordPicklistRefresh(success, rows)
}

// RecordCircuitBreakerState records circuit breaker state
func (b *BusinessMetrics) RecordCircuitBreakerState(name string, state int) {
	b.metrics.SetCircuitBreakerState(name, state)
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (b *BusinessMetrics) RecordCircuitBreakerTrip(name string) {
	b.metrics.RecordCircuitBreakerTrip(name)
}
