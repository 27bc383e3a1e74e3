package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/backoffice-platform/returns-service/internal/application"
	"github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

// CatalogService is the application surface the catalog handlers expose
type CatalogService interface {
	List(ctx context.Context) (*application.CatalogDTO, error)
}

// CatalogHandlers contains handlers for the catalog surface
type CatalogHandlers struct {
	service CatalogService
	logger  *logging.Logger
}

// NewCatalogHandlers creates a new CatalogHandlers
func NewCatalogHandlers(service CatalogService, logger *logging.Logger) *CatalogHandlers {
	return &CatalogHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers catalog routes on the router
func (h *CatalogHandlers) RegisterRoutes(router *gin.RouterGroup) {
	catalog := router.Group("/catalog")
	{
		catalog.GET("/products", h.ListProducts)
	}
}

// ListProducts handles listing the catalog with its sale subset
func (h *CatalogHandlers) ListProducts(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	catalog, err := h.service.List(c.Request.Context())
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, catalog)
}
