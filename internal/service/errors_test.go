package service_test

import (
	"errors"
	"testing"
	"time"

	"kcompile/backend/internal/service"

	"github.com/stretchr/testify/require"
)

func TestRateLimitedError_Is(t *testing.T) {
	err := &service.RateLimitedError{RetryAfter: time.Minute}

	require.Equal(t, "too many requests", err.Error())
	require.True(t, errors.Is(err, service.ErrRateLimited))
	require.False(t, errors.Is(err, service.ErrInvalid))
	require.False(t, errors.Is(err, service.ErrCompilation))
}

func TestRemoteCompilationError_Is(t *testing.T) {
	err := &service.RemoteCompilationError{Details: map[string]any{"error": "Unauthorized Request"}}

	require.Equal(t, "compilation error: Unauthorized Request", err.Error())
	require.True(t, errors.Is(err, service.ErrCompilation))
	require.False(t, errors.Is(err, service.ErrExecutorUnavailable))
}

func TestRemoteCompilationError_As(t *testing.T) {
	var err error = &service.RemoteCompilationError{Details: map[string]any{"statusCode": float64(401)}}

	var compileErr *service.RemoteCompilationError
	require.True(t, errors.As(err, &compileErr))
	require.Equal(t, float64(401), compileErr.Details["statusCode"])
	require.Equal(t, "compilation error", compileErr.Error())
}

func TestValidationErrors_AreInvalid(t *testing.T) {
	require.True(t, errors.Is(service.ErrEmptySubmission, service.ErrInvalid))
	require.True(t, errors.Is(service.ErrSubmissionTooLarge, service.ErrInvalid))
	require.False(t, errors.Is(service.ErrEmptySubmission, service.ErrSubmissionTooLarge))
}
