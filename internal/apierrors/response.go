package apierrors

import (
	"q-pipecat/internal/observability"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the JSON structure returned to webhook callers
type ErrorResponse struct {
	Detail string `json:"detail"`         // Human readable error message
	Code   string `json:"code,omitempty"` // Machine-readable error code
}

// Responder writes error responses. It is built once and injected into handlers.
type Responder struct {
	logger       *observability.Logger
	legacyStatus bool
}

// NewResponder creates a Responder. With legacyStatus every failure is a 500.
func NewResponder(logger *observability.Logger, legacyStatus bool) *Responder {
	return &Responder{logger: logger, legacyStatus: legacyStatus}
}

// Map converts err with the configured status policy.
func (r *Responder) Map(err error) *APIError {
	if r.legacyStatus {
		return MapLegacyError(err)
	}
	return MapError(err)
}

// RespondWithError logs the failure and sends the mapped JSON response.
//
// Example usage:
//
//	if err != nil {
//	    h.responder.RespondWithError(c, err)
//	    return
//	}
func (r *Responder) RespondWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	apiErr := r.Map(err)

	ctx := observability.WithFields(c.Request.Context(),
		observability.Field{Key: "status_code", Value: apiErr.StatusCode},
		observability.Field{Key: "error_code", Value: apiErr.Code},
	)
	if apiErr.StatusCode >= 500 {
		r.logger.Error(ctx, "API error response", err)
	} else {
		r.logger.InfoWithError(ctx, "API error response", err)
	}

	c.AbortWithStatusJSON(apiErr.StatusCode, ErrorResponse{
		Detail: apiErr.Message,
		Code:   apiErr.Code,
	})
}
