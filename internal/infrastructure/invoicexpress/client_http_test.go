package invoicexpress

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/metrics"
	"github.com/backoffice-platform/returns-service/pkg/resilience"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()

	srv := httptest.NewTLSServer(handler)
	t.Cleanup(srv.Close)

	logger := logging.New(&logging.Config{
		Level:       logging.LevelError,
		ServiceName: "returns-service-test",
		Output:      io.Discard,
	})

	breaker := resilience.DefaultCircuitBreakerConfig(upstreamName)
	breaker.FailureThreshold = 2

	c := NewClient(Config{
		AccountDomain: strings.TrimPrefix(srv.URL, "https://"),
		APIKey:        "test-key",
		Breaker:       breaker,
	}, logger, metrics.New(metrics.DefaultConfig("invoicexpress_test")))
	c.httpClient = srv.Client()
	return c
}

func TestCreateInvoice_PostsEnvelopeAndReturnsClientID(t *testing.T) {
	var gotPath, gotKey string
	var gotBody invoiceEnvelope
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("api_key")
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{"invoice": {"id": 777, "status": "draft", "client": {"id": 321, "name": "Jane Doe", "code": "4821"}}}`)
	}))

	created, err := c.CreateInvoice(context.Background(), Invoice{
		Reference: "4821",
		Client:    InvoiceClient{Name: "Jane Doe", Code: "4821"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/invoices.json", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "4821", gotBody.Invoice.Reference)
	assert.Equal(t, int64(777), created.ID)
	assert.Equal(t, int64(321), created.Client.ID)
}

func TestUpdateClient_PutsToClientResource(t *testing.T) {
	var gotPath string
	var gotBody clientUpdateEnvelope
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		fmt.Fprint(w, `{}`)
	}))

	err := c.UpdateClient(context.Background(), 321, ClientUpdate{
		Name: "Jane Doe", Code: "4821", City: "Sydney",
	})
	require.NoError(t, err)
	assert.Equal(t, "/clients/321.json", gotPath)
	assert.Equal(t, "Sydney", gotBody.Client.City)

	err = c.UpdateClient(context.Background(), 0, ClientUpdate{})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
}

func TestCreateInvoice_UnprocessableEntityMapsToValidation(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"errors": [{"error": "Sequence is invalid"}]}`)
	}))

	_, err := c.CreateInvoice(context.Background(), Invoice{})
	require.Error(t, err)

	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationError, appErr.Code)
	assert.Contains(t, appErr.Message, "Sequence is invalid")
}

func TestCreateInvoice_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))

	for i := 0; i < 2; i++ {
		_, err := c.CreateInvoice(context.Background(), Invoice{})
		require.Error(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())

	// Breaker is now open, so no further requests reach the server.
	_, err := c.CreateInvoice(context.Background(), Invoice{})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeUpstreamUnavailable, appErr.Code)
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "open", c.BreakerStatus().State)
}

func TestPing_ChecksSequencesEndpoint(t *testing.T) {
	var gotPath string
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"sequences": []}`)
	}))

	require.NoError(t, c.Ping(context.Background()))
	assert.Equal(t, "/sequences.json", gotPath)
}
