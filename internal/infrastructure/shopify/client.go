package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
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

var tracer = otel.Tracer("returns-service/infrastructure/shopify")

// API versions in use. Orders moved to the newer version first; the
// per-resource endpoints still pin the older one.
const (
	ordersAPIVersion   = "2024-10"
	resourceAPIVersion = "2024-04"
)

const upstreamName = "shopify"

// Config holds the storefront connection settings.
type Config struct {
	StoreDomain string
	AccessToken string
	Timeout     time.Duration
	Retry       *resilience.RetryConfig
}

// DefaultRetryConfig is the fetcher retry policy: bounded attempts with
// exponential backoff and no jitter. Not-found and decode failures are
// never retried.
func DefaultRetryConfig() *resilience.RetryConfig {
	return &resilience.RetryConfig{
		MaxAttempts:   resilience.DefaultRetryMaxAttempts,
		InitialDelay:  resilience.DefaultRetryInitialDelay,
		MaxDelay:      resilience.DefaultRetryMaxDelay,
		BackoffFactor: resilience.DefaultRetryBackoffFactor,
		RetryableErrors: func(err error) bool {
			if appErr, ok := apperrors.AsAppError(err); ok {
				switch appErr.Code {
				case apperrors.CodeNotFound, apperrors.CodeDecodeError, apperrors.CodeValidationError:
					return false
				}
			}
			return true
		},
	}
}

// Client talks to the storefront Admin REST API.
type Client struct {
	httpClient  *http.Client
	storeDomain string
	accessToken string
	retry       *resilience.RetryConfig
	logger      *logging.Logger
	metrics     *metrics.Metrics
}

// NewClient creates a storefront API client. TLS verification stays on.
func NewClient(cfg Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	retry := cfg.Retry
	if retry == nil {
		retry = DefaultRetryConfig()
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		storeDomain: cfg.StoreDomain,
		accessToken: cfg.AccessToken,
		retry:       retry,
		logger:      logger.WithComponent("shopify_client"),
		metrics:     m,
	}
}

// fetchResult carries a decoded body plus the headers of the final page.
type fetchResult struct {
	body   []byte
	header http.Header
}

// get performs one GET against the API, classifying failures: 404 maps
// to not-found, other non-2xx and transport errors stay retryable.
func (c *Client) get(ctx context.Context, operation, url string) (fetchResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}, apperrors.ErrInternal("failed to build request").Wrap(err)
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(upstreamName, operation, 0, time.Since(start))
		return fetchResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordUpstreamRequest(upstreamName, operation, resp.StatusCode, duration)
	c.logger.UpstreamCall(ctx, upstreamName, operation, resp.StatusCode, duration, 1)

	if resp.StatusCode == http.StatusNotFound {
		return fetchResult{}, apperrors.ErrNotFound(operation)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fetchResult{}, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fetchResult{}, fmt.Errorf("read body: %w", err)
	}
	return fetchResult{body: body, header: resp.Header}, nil
}

// getWithRetry wraps get in the fetcher retry policy and traces the
// whole operation, attempts included.
func (c *Client) getWithRetry(ctx context.Context, operation, url string) (fetchResult, error) {
	ctx, span := tracer.Start(ctx, "shopify."+operation,
		trace.WithAttributes(
			attribute.String("upstream.name", upstreamName),
			attribute.String("upstream.operation", operation),
		),
	)
	defer span.End()

	attempt := 0
	result, err := resilience.RetryWithResult(ctx, c.retry, func() (fetchResult, error) {
		attempt++
		if attempt > 1 {
			c.metrics.RecordUpstreamRetry(upstreamName, operation)
		}
		return c.get(ctx, operation, url)
	})
	span.SetAttributes(attribute.Int("upstream.attempts", attempt))

	if err != nil {
		span.RecordError(err)
		if appErr, ok := apperrors.AsAppError(err); ok {
			return fetchResult{}, appErr
		}
		return fetchResult{}, apperrors.ErrUpstreamUnavailable(upstreamName, err)
	}
	return result, nil
}

// decode unmarshals a response body, mapping failures to decode errors.
func decode(resource string, body []byte, v any) error {
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.ErrDecode(resource, err)
	}
	return nil
}

func (c *Client) url(version, path string) string {
	return fmt.Sprintf("https://%s/admin/api/%s/%s", c.storeDomain, version, path)
}
