package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/backoffice-platform/returns-service/internal/application"
	"github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

type mockInvoiceService struct {
	processFn func(ctx context.Context, cmd application.ProcessInvoicesCommand) (*application.InvoiceBatchDTO, error)
}

func (m *mockInvoiceService) ProcessOrders(ctx context.Context, cmd application.ProcessInvoicesCommand) (*application.InvoiceBatchDTO, error) {
	if m.processFn == nil {
		panic("ProcessOrders not implemented")
	}
	return m.processFn(ctx, cmd)
}

func newInvoiceRouter(service InvoiceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()
	router := gin.New()
	logger := logging.New(logging.DefaultConfig("test"))
	NewInvoiceHandlers(service, logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestProcessInvoices(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &mockInvoiceService{
			processFn: func(ctx context.Context, cmd application.ProcessInvoicesCommand) (*application.InvoiceBatchDTO, error) {
				assert.Equal(t, []int64{900100, 900101}, cmd.OrderIDs)
				return &application.InvoiceBatchDTO{
					Rate:           "0.6",
					Successful:     []int64{900100},
					FailedInvoices: []int64{900101},
					FailedClients:  []int64{},
				}, nil
			},
		}
		router := newInvoiceRouter(service)

		rec := performRequest(router, http.MethodPost, "/api/v1/invoices/process", `{"orderIds":[900100,900101]}`)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"successful":[900100]`)
		assert.Contains(t, rec.Body.String(), `"failedInvoices":[900101]`)
	})

	t.Run("empty batch rejected", func(t *testing.T) {
		router := newInvoiceRouter(&mockInvoiceService{})
		rec := performRequest(router, http.MethodPost, "/api/v1/invoices/process", `{"orderIds":[]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("upstream failure maps to app error", func(t *testing.T) {
		service := &mockInvoiceService{
			processFn: func(ctx context.Context, cmd application.ProcessInvoicesCommand) (*application.InvoiceBatchDTO, error) {
				return nil, errors.ErrUpstreamUnavailable("exchangerate", nil)
			},
		}
		router := newInvoiceRouter(service)
		rec := performRequest(router, http.MethodPost, "/api/v1/invoices/process", `{"orderIds":[900100]}`)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
