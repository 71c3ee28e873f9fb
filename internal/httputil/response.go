// Package httputil provides HTTP utility functions for request and response handling.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/ledger/internal/errors"
)

// ErrorResponse is the body of every failed request. Code equals the HTTP status.
type ErrorResponse struct {
	Title  string            `json:"title"`
	Code   int               `json:"code"`
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

// HandleErrorGin maps domain errors to HTTP status codes and writes an ErrorResponse.
// Per-field validation errors become 422, other invalid input 400.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	var fieldErrors validation.Errors
	response := ErrorResponse{Detail: err.Error()}

	switch {
	case apperrors.As(err, &fieldErrors):
		response.Code = http.StatusUnprocessableEntity
		response.Title = "Validation failed"
		response.Errors = flatten(fieldErrors)

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		response.Code = http.StatusBadRequest
		response.Title = "Bad request"

	case apperrors.Is(err, apperrors.ErrNotFound):
		response.Code = http.StatusNotFound
		response.Title = "Not found"

	case apperrors.Is(err, apperrors.ErrConflict):
		response.Code = http.StatusConflict
		response.Title = "Conflict"

	case apperrors.Is(err, apperrors.ErrUnsupported):
		response.Code = http.StatusUnsupportedMediaType
		response.Title = "Unsupported"

	case apperrors.Is(err, apperrors.ErrUnavailable):
		response.Code = http.StatusServiceUnavailable
		response.Title = "Service unavailable"
		response.Detail = "A dependency is temporarily unavailable"

	case apperrors.Is(err, apperrors.ErrUnauthorized):
		response.Code = http.StatusUnauthorized
		response.Title = "Unauthorized"

	case apperrors.Is(err, apperrors.ErrForbidden):
		response.Code = http.StatusForbidden
		response.Title = "Forbidden"

	default:
		// Internal details stay in the logs.
		response.Code = http.StatusInternalServerError
		response.Title = "Internal error"
		response.Detail = "An internal error occurred"
	}

	if logger != nil {
		level := slog.LevelWarn
		if response.Code >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.Log(c.Request.Context(), level, "request failed",
			slog.Int("status_code", response.Code),
			slog.String("title", response.Title),
			slog.Any("error", err),
		)
	}

	c.JSON(response.Code, response)
}

// HandleBadRequestGin writes a 400 Bad Request response for malformed JSON or parameters.
func HandleBadRequestGin(c *gin.Context, err error, logger *slog.Logger) {
	if logger != nil {
		logger.Warn("bad request", slog.Any("error", err))
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Title:  "Bad request",
		Code:   http.StatusBadRequest,
		Detail: err.Error(),
	})
}

func flatten(errs validation.Errors) map[string]string {
	out := make(map[string]string, len(errs))
	for field, err := range errs {
		if err != nil {
			out[field] = err.Error()
		}
	}
	return out
}
