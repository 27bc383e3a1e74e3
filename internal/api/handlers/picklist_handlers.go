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

// PicklistService is the application surface the pick list handlers expose
type PicklistService interface {
	Get(ctx context.Context) (*application.PicklistDTO, error)
	Refresh(ctx context.Context) (*application.PicklistRefreshDTO, error)
	SaveAnnotations(ctx context.Context, cmd application.SaveAnnotationsCommand) error
}

// PicklistHandlers contains handlers for the atelier pick lists
type PicklistHandlers struct {
	service PicklistService
	logger  *logging.Logger
}

// NewPicklistHandlers creates a new PicklistHandlers
func NewPicklistHandlers(service PicklistService, logger *logging.Logger) *PicklistHandlers {
	return &PicklistHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers pick list routes on the router
func (h *PicklistHandlers) RegisterRoutes(router *gin.RouterGroup) {
	picklists := router.Group("/picklists")
	{
		picklists.GET("", h.GetPicklists)
		picklists.POST("/refresh", h.Refresh)
		picklists.PUT("/annotations", h.SaveAnnotations)
	}
}

// GetPicklists handles returning both persisted pick list tabs
func (h *PicklistHandlers) GetPicklists(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	picklists, err := h.service.Get(c.Request.Context())
	if err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.JSON(http.StatusOK, picklists)
}

// Refresh handles rebuilding the pick lists from outstanding orders
func (h *PicklistHandlers) Refresh(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	result, err := h.service.Refresh(c.Request.Context())
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

// SaveAnnotations handles persisting operator edits to both tabs
func (h *PicklistHandlers) SaveAnnotations(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var cmd application.SaveAnnotationsCommand
	if appErr := middleware.BindAndValidate(c, &cmd); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	if err := h.service.SaveAnnotations(c.Request.Context(), cmd); err != nil {
		responder.RespondInternalError(err)
		return
	}

	c.Status(http.StatusNoContent)
}
