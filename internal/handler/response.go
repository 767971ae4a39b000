package handler

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"kcompile/backend/internal/service"
)

type errorResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// Error writes a failure body with the given status.
func Error(c echo.Context, status int, message string) error {
	return c.JSON(status, errorResponse{Success: false, Error: message})
}

func writeServiceError(c echo.Context, err error) error {
	var compileErr *service.RemoteCompilationError
	if errors.As(err, &compileErr) {
		return c.JSON(http.StatusBadRequest, errorResponse{
			Success: false,
			Error:   "compilation error",
			Details: compileErr.Details,
		})
	}

	var rateErr *service.RateLimitedError
	switch {
	case errors.As(err, &rateErr):
		if secs := int(math.Ceil(rateErr.RetryAfter.Seconds())); secs > 0 {
			c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		}
		return Error(c, http.StatusTooManyRequests, "too many requests, try again later")
	case errors.Is(err, service.ErrRateLimited):
		return Error(c, http.StatusTooManyRequests, "too many requests, try again later")
	case errors.Is(err, service.ErrEmptySubmission):
		return Error(c, http.StatusBadRequest, "code is required")
	case errors.Is(err, service.ErrSubmissionTooLarge):
		return Error(c, http.StatusBadRequest, "code is too long")
	case errors.Is(err, service.ErrInvalid):
		return Error(c, http.StatusBadRequest, "invalid request")
	default:
		return Error(c, http.StatusInternalServerError, "internal server error")
	}
}
