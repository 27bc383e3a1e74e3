package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/backoffice-platform/returns-service/internal/application"
	"github.com/backoffice-platform/returns-service/internal/domain"
	"github.com/backoffice-platform/returns-service/pkg/errors"
	"github.com/backoffice-platform/returns-service/pkg/logging"
	"github.com/backoffice-platform/returns-service/pkg/middleware"
)

// ReturnsService is the application surface the returns handlers expose
type ReturnsService interface {
	Profiles() []string
	Search(ctx context.Context, query application.SearchOrdersQuery) ([]domain.OrderSummary, error)
	Review(ctx context.Context, query application.ReviewOrderQuery) (*application.OrderReviewDTO, error)
	ComposeResponse(ctx context.Context, cmd application.ComposeResponseCommand) (*application.ComposedResponseDTO, error)
}

// ReturnsHandlers contains handlers for the returns review surface
type ReturnsHandlers struct {
	service ReturnsService
	logger  *logging.Logger
}

// NewReturnsHandlers creates a new ReturnsHandlers
func NewReturnsHandlers(service ReturnsService, logger *logging.Logger) *ReturnsHandlers {
	return &ReturnsHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers returns routes on the router
func (h *ReturnsHandlers) RegisterRoutes(router *gin.RouterGroup) {
	returns := router.Group("/returns")
	{
		returns.GET("/orders", h.SearchOrders)
		returns.GET("/orders/:orderId/review", h.ReviewOrder)
		returns.POST("/response", h.ComposeResponse)
		returns.GET("/profiles", h.ListProfiles)
	}
}

// SearchOrders handles looking up orders by customer email or order name
func (h *ReturnsHandlers) SearchOrders(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	query := application.SearchOrdersQuery{
		Field: c.DefaultQuery("field", "email"),
		Query: c.Query("query"),
	}
	if appErr := middleware.ValidateStruct(query); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"search.field": query.Field,
	})

	summaries, err := h.service.Search(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"orders": summaries})
}

// ReviewOrder handles the eligibility review of a single order
func (h *ReturnsHandlers) ReviewOrder(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil || orderID <= 0 {
		responder.RespondBadRequest("orderId must be a positive integer")
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id": orderID,
	})

	query := application.ReviewOrderQuery{
		OrderID: orderID,
		Profile: c.Query("profile"),
	}

	review, err := h.service.Review(c.Request.Context(), query)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, review)
}

// ComposeResponse handles generating the customer reply for selected items
func (h *ReturnsHandlers) ComposeResponse(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.ComposeResponseCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id":       cmd.OrderID,
		"selected.items": len(cmd.LineItemIDs),
	})

	resp, err := h.service.ComposeResponse(c.Request.Context(), cmd)
	if err != nil {
		if appErr, ok := err.(*errors.AppError); ok {
			responder.RespondWithAppError(appErr)
		} else {
			responder.RespondInternalError(err)
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListProfiles handles listing the available policy profiles
func (h *ReturnsHandlers) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"profiles": h.service.Profiles()})
}
