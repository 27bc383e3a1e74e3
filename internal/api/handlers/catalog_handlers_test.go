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

type mockCatalogService struct {
	listFn func(ctx context.Context) (*application.CatalogDTO, error)
}

func (m *mockCatalogService) List(ctx context.Context) (*application.CatalogDTO, error) {
	if m.listFn == nil {
		panic("List not implemented")
	}
	return m.listFn(ctx)
}

func newCatalogRouter(service CatalogService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.InitValidator()
	router := gin.New()
	logger := logging.New(logging.DefaultConfig("test"))
	NewCatalogHandlers(service, logger).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func TestListCatalogProducts(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		service := &mockCatalogService{
			listFn: func(ctx context.Context) (*application.CatalogDTO, error) {
				return &application.CatalogDTO{
					SaleItems: []application.SaleItemDTO{
						{VariantID: 501, Percentage: 33, ProductURL: "https://maison-nord.com/products/silk-midi-dress"},
					},
				}, nil
			},
		}
		router := newCatalogRouter(service)

		rec := performRequest(router, http.MethodGet, "/api/v1/catalog/products", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"percentage":33`)
	})

	t.Run("upstream failure maps to app error", func(t *testing.T) {
		service := &mockCatalogService{
			listFn: func(ctx context.Context) (*application.CatalogDTO, error) {
				return nil, errors.ErrUpstreamUnavailable("shopify", nil)
			},
		}
		router := newCatalogRouter(service)
		rec := performRequest(router, http.MethodGet, "/api/v1/catalog/products", "")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}
