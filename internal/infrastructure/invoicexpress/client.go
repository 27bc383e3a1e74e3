package invoicexpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/metrics"
	"github.com/backoffice-platform/returns-service/pkg/resilience"
)

var tracer = otel.Tracer("returns-service/infrastructure/invoicexpress")

const upstreamName = "invoicexpress"

// Config holds the invoicing account connection settings.
type Config struct {
	AccountDomain string // e.g. "myaccount.app.invoicexpress.com"
	APIKey        string
	Timeout       time.Duration
	Breaker       *resilience.CircuitBreakerConfig
}

// Client talks to the InvoiceExpress REST API. All calls go through a
// circuit breaker so a broken invoicing account cannot stall a batch
// run attempt by attempt.
type Client struct {
	httpClient    *http.Client
	accountDomain string
	apiKey        string
	breaker       *resilience.CircuitBreaker
	logger        *logging.Logger
	metrics       *metrics.Metrics
}

// NewClient creates an invoicing API client.
func NewClient(cfg Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	breakerCfg := cfg.Breaker
	if breakerCfg == nil {
		breakerCfg = resilience.DefaultCircuitBreakerConfig(upstreamName)
	}

	componentLogger := logger.WithComponent("invoicexpress_client")
	return &Client{
		httpClient:    &http.Client{Timeout: timeout},
		accountDomain: cfg.AccountDomain,
		apiKey:        cfg.APIKey,
		breaker:       newBreakerWithMetrics(breakerCfg, componentLogger.Logger, m),
		logger:        componentLogger,
		metrics:       m,
	}
}

func newBreakerWithMetrics(cfg *resilience.CircuitBreakerConfig, logger *slog.Logger, m *metrics.Metrics) *resilience.CircuitBreaker {
	cb := resilience.NewCircuitBreaker(cfg, logger)
	m.SetCircuitBreakerState(cfg.Name, 0)
	return cb
}

// BreakerStatus exposes the breaker state for readiness reporting.
func (c *Client) BreakerStatus() resilience.CircuitBreakerStatus {
	return c.breaker.Status()
}

// CreateInvoice posts a new invoice and returns the created record,
// including the client id the account assigned.
func (c *Client) CreateInvoice(ctx context.Context, inv Invoice) (CreatedInvoice, error) {
	var created createdEnvelope
	err := c.do(ctx, "create_invoice", http.MethodPost, "/invoices.json", invoiceEnvelope{Invoice: inv}, &created)
	if err != nil {
		return CreatedInvoice{}, err
	}
	return created.Invoice, nil
}

// UpdateClient pushes the shipping details captured on the invoice back
// onto the account's client record.
func (c *Client) UpdateClient(ctx context.Context, clientID int64, update ClientUpdate) error {
	if clientID <= 0 {
		return apperrors.ErrValidation("client id must be positive")
	}
	path := fmt.Sprintf("/clients/%d.json", clientID)
	return c.do(ctx, "update_client", http.MethodPut, path, clientUpdateEnvelope{Client: update}, nil)
}

// Ping checks connectivity by listing invoice sequences.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, "ping", http.MethodGet, "/sequences.json", nil, nil)
}

func (c *Client) do(ctx context.Context, operation, method, path string, payload, out any) error {
	ctx, span := tracer.Start(ctx, "invoicexpress."+operation,
		trace.WithAttributes(
			attribute.String("upstream.name", upstreamName),
			attribute.String("upstream.operation", operation),
		),
	)
	defer span.End()

	result, err := c.breaker.Execute(ctx, func() (interface{}, error) {
		return c.request(ctx, operation, method, path, payload)
	})
	c.metrics.SetCircuitBreakerState(upstreamName, breakerStateValue(c.breaker))
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, resilience.ErrCircuitOpen) {
			c.metrics.RecordCircuitBreakerTrip(upstreamName)
			return apperrors.ErrUpstreamUnavailable(upstreamName, err)
		}
		if appErr, ok := apperrors.AsAppError(err); ok {
			return appErr
		}
		return apperrors.ErrUpstreamUnavailable(upstreamName, err)
	}

	if out == nil {
		return nil
	}
	body := result.([]byte)
	if err := json.Unmarshal(body, out); err != nil {
		return apperrors.ErrDecode(operation, err)
	}
	return nil
}

func (c *Client) request(ctx context.Context, operation, method, path string, payload any) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, apperrors.ErrInternal("failed to encode payload").Wrap(err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	u := fmt.Sprintf("https://%s%s?api_key=%s", c.accountDomain, path, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to build request").Wrap(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(upstreamName, operation, 0, time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordUpstreamRequest(upstreamName, operation, resp.StatusCode, duration)
	c.logger.UpstreamCall(ctx, upstreamName, operation, resp.StatusCode, duration, 1)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, apperrors.ErrNotFound(operation)
	case resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, apperrors.ErrValidation(fmt.Sprintf("%s rejected: %s", operation, truncate(body, 512)))
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(body, 512))
	}
	return body, nil
}

func breakerStateValue(cb *resilience.CircuitBreaker) int {
	switch cb.State().String() {
	case "open":
		return 1
	case "half-open":
		return 2
	default:
		return 0
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
