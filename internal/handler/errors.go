package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/domain"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/dto"
	"github.com/shreyasgurav/Zest-Prototype-sub001/internal/service"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/logger"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/middleware"
	"github.com/shreyasgurav/Zest-Prototype-sub001/pkg/response"
	"go.uber.org/zap"
)

// handleError writes the envelope for err. fallback is the message used for unexpected failures.
func handleError(c *gin.Context, err error, fallback string) {
	if denied, ok := domain.AsEntryDenied(err); ok {
		c.JSON(denied.Reason.HTTPStatus(), response.ErrorWithDetails(denied.Reason.String(), denied.Message, denied.Details()))
		return
	}

	var fields dto.FieldErrors
	if errors.As(err, &fields) {
		c.JSON(http.StatusBadRequest, response.ValidationError("Invalid request", fields))
		return
	}

	switch {
	case errors.Is(err, domain.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Ticket not found"))
	case errors.Is(err, domain.ErrParentNotFound):
		c.JSON(http.StatusNotFound, response.NotFound("Event or activity not found"))
	case domain.IsForbiddenError(err):
		c.JSON(http.StatusForbidden, response.Forbidden(err.Error()))
	case errors.Is(err, domain.ErrInvalidTicketStatus):
		c.JSON(http.StatusConflict, response.Error("INVALID_STATUS", "Ticket is no longer active"))
	case domain.IsConflictError(err):
		c.JSON(http.StatusConflict, response.Conflict(err.Error()))
	case domain.IsValidationError(err):
		c.JSON(http.StatusBadRequest, response.BadRequest(err.Error()))
	default:
		logger.Get().Error(fallback,
			zap.String("request_id", middleware.GetRequestID(c)),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, response.InternalError(fallback))
	}
}

// callerFrom builds the service caller from the JWT context
func callerFrom(c *gin.Context) service.Caller {
	return service.Caller{
		UserID: middleware.GetUserID(c),
		Role:   middleware.GetRole(c),
	}
}
