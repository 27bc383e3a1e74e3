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

// InvoiceService is the application surface the invoicing handlers expose
type InvoiceService interface {
	ProcessOrders(ctx context.Context, cmd application.ProcessInvoicesCommand) (*application.InvoiceBatchDTO, error)
}

// InvoiceHandlers contains handlers for customs invoicing
type InvoiceHandlers struct {
	service InvoiceService
	logger  *logging.Logger
}

// NewInvoiceHandlers creates a new InvoiceHandlers
func NewInvoiceHandlers(service InvoiceService, logger *logging.Logger) *InvoiceHandlers {
	return &InvoiceHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers invoicing routes on the router
func (h *InvoiceHandlers) RegisterRoutes(router *gin.RouterGroup) {
	invoices := router.Group("/invoices")
	{
		invoices.POST("/process", h.ProcessOrders)
	}
}

// ProcessOrders handles invoicing a batch of orders
func (h *InvoiceHandlers) ProcessOrders(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ProcessInvoicesCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"batch.orders": len(cmd.OrderIDs),
	})

	result, err := h.service.ProcessOrders(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
