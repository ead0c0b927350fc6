package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"example.com/baletrack/internal/service"
)

// ErrorResponse defines the structure of an error response
type ErrorResponse struct {
	Message       string `json:"message"`
	Code          string `json:"code,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}

// Error codes shared with the field agent client
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeNotFound          = "NOT_FOUND"
	CodeForbidden         = "FORBIDDEN"
	CodeIllegalTransition = "ILLEGAL_TRANSITION"
	CodeTransient         = "TRANSIENT_CONFLICT"
	CodeInternal          = "INTERNAL_ERROR"
)

// WriteError maps a service error onto the HTTP error envelope
func WriteError(c *gin.Context, err error) {
	var transitionErr *service.TransitionError
	if errors.As(err, &transitionErr) {
		// The current status lets an offline client replaying a queued
		// intent distinguish "already applied" from a real conflict.
		c.JSON(http.StatusConflict, ErrorResponse{
			Message:       transitionErr.Error(),
			Code:          CodeIllegalTransition,
			CurrentStatus: string(transitionErr.Current),
		})
		return
	}

	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Message: err.Error(), Code: CodeNotFound})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Message: err.Error(), Code: CodeForbidden})
	case errors.Is(err, service.ErrInvalidCount), errors.Is(err, service.ErrBadConfirmation):
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: err.Error(), Code: CodeInvalidRequest})
	case errors.Is(err, service.ErrTransient):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Message: err.Error(), Code: CodeTransient})
	default:
		log.Error().Err(err).Msg("Unhandled error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Message: "Internal server error", Code: CodeInternal})
	}
}

// NewValidationError writes a 400 with a custom message
func NewValidationError(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Message: message, Code: CodeInvalidRequest})
}
