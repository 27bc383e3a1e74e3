// Package exchangerate fetches currency conversion rates from the
// exchangerate-api.com v6 endpoint.
package exchangerate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/metrics"
	"github.com/backoffice-platform/returns-service/pkg/resilience"
)

const upstreamName = "exchangerate"

// RateProvider yields the conversion rate from one currency to another.
type RateProvider interface {
	Rate(ctx context.Context, base, target string) (decimal.Decimal, error)
}

// Config holds the rate API settings.
type Config struct {
	BaseURL string // defaults to the public v6 endpoint
	APIKey  string
	Timeout time.Duration
	Retry   *resilience.RetryConfig
}

// Client implements RateProvider against the live API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	retry      *resilience.RetryConfig
	logger     *logging.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a rate API client.
func NewClient(cfg Config, logger *logging.Logger, m *metrics.Metrics) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://v6.exchangerate-api.com/v6"
	}
	retry := cfg.Retry
	if retry == nil {
		retry = resilience.DefaultRetryConfig()
		retry.RetryableErrors = func(err error) bool {
			return !apperrors.IsAppError(err)
		}
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		retry:      retry,
		logger:     logger.WithComponent("exchangerate_client"),
		metrics:    m,
	}
}

type ratesEnvelope struct {
	Result          string             `json:"result"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

// Rate fetches the latest conversion rate from base to target.
func (c *Client) Rate(ctx context.Context, base, target string) (decimal.Decimal, error) {
	if len(base) != 3 || len(target) != 3 {
		return decimal.Zero, apperrors.ErrValidation("currency codes must be three letters")
	}

	u := fmt.Sprintf("%s/%s/latest/%s", c.baseURL, c.apiKey, base)
	body, err := resilience.RetryWithResult(ctx, c.retry, func() ([]byte, error) {
		return c.get(ctx, u)
	})
	if err != nil {
		if appErr, ok := apperrors.AsAppError(err); ok {
			return decimal.Zero, appErr
		}
		return decimal.Zero, apperrors.ErrUpstreamUnavailable(upstreamName, err)
	}

	var env ratesEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return decimal.Zero, apperrors.ErrDecode("rates", err)
	}

	rate, ok := env.ConversionRates[target]
	if !ok {
		return decimal.Zero, apperrors.ErrMissingField("rates", target)
	}
	return decimal.NewFromFloat(rate), nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.ErrInternal("failed to build request").Wrap(err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.RecordUpstreamRequest(upstreamName, "latest", 0, time.Since(start))
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start)
	c.metrics.RecordUpstreamRequest(upstreamName, "latest", resp.StatusCode, duration)
	c.logger.UpstreamCall(ctx, upstreamName, "latest", resp.StatusCode, duration, 1)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
