package handler_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"kcompile/backend/internal/handler"
	"kcompile/backend/internal/service"

	"github.com/stretchr/testify/require"
)

func TestWriteServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		expected string
	}{
		{name: "empty", err: service.ErrEmptySubmission, status: http.StatusBadRequest, expected: "code is required"},
		{name: "too_large", err: service.ErrSubmissionTooLarge, status: http.StatusBadRequest, expected: "code is too long"},
		{name: "invalid", err: service.ErrInvalid, status: http.StatusBadRequest, expected: "invalid request"},
		{name: "rate_limited", err: service.ErrRateLimited, status: http.StatusTooManyRequests, expected: "too many requests, try again later"},
		{name: "executor", err: fmt.Errorf("%w: dial tcp: i/o timeout", service.ErrExecutorUnavailable), status: http.StatusInternalServerError, expected: "internal server error"},
		{name: "default", err: errors.New("boom"), status: http.StatusInternalServerError, expected: "internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newTestEcho()
			req := newJSONRequest(http.MethodPost, "/compile", nil)
			c, rec := newTestContext(e, req)

			err := handler.WriteServiceError(c, tc.err)
			require.NoError(t, err)

			var resp map[string]any
			assertJSONResponse(t, rec, tc.status, &resp)
			require.Equal(t, tc.expected, resp["error"])
			require.Equal(t, false, resp["success"])
			require.NotContains(t, resp, "details")
			require.NotContains(t, rec.Body.String(), "i/o timeout")
		})
	}
}

func TestWriteServiceError_RetryAfter(t *testing.T) {
	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodPost, "/compile", nil))

	err := handler.WriteServiceError(c, &service.RateLimitedError{RetryAfter: 90*time.Second + time.Millisecond})
	require.NoError(t, err)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "91", rec.Header().Get("Retry-After"))
}

func TestWriteServiceError_CompilationDetails(t *testing.T) {
	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodPost, "/compile", nil))

	err := handler.WriteServiceError(c, &service.RemoteCompilationError{
		Details: map[string]any{"error": "Invalid Request", "statusCode": 400},
	})
	require.NoError(t, err)

	var resp handler.ErrorResponse
	assertJSONResponse(t, rec, http.StatusBadRequest, &resp)
	require.False(t, resp.Success)
	require.Equal(t, "compilation error", resp.Error)
	require.Equal(t, "Invalid Request", resp.Details["error"])
	require.Equal(t, float64(400), resp.Details["statusCode"])
}

func TestErrorResponse(t *testing.T) {
	e := newTestEcho()
	req := newJSONRequest(http.MethodGet, "/", nil)
	c, rec := newTestContext(e, req)

	err := handler.Error(c, http.StatusBadRequest, "bad request")
	require.NoError(t, err)

	var resp map[string]any
	assertJSONResponse(t, rec, http.StatusBadRequest, &resp)
	require.Equal(t, "bad request", resp["error"])
	require.Equal(t, false, resp["success"])
}
