package service

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalid             = errors.New("invalid")
	ErrEmptySubmission     = fmt.Errorf("%w: code is empty", ErrInvalid)
	ErrSubmissionTooLarge  = fmt.Errorf("%w: code is too long", ErrInvalid)
	ErrRateLimited         = errors.New("rate limited")
	ErrCompilation         = errors.New("compilation error")
	ErrExecutorUnavailable = errors.New("executor unavailable")
)

// RateLimitedError carries how long the caller should wait before retrying.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return "too many requests"
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RemoteCompilationError is a structured rejection reported by the executor.
// Details come from the executor verbatim.
type RemoteCompilationError struct {
	Details map[string]any
}

func (e *RemoteCompilationError) Error() string {
	if msg, ok := e.Details["error"].(string); ok && msg != "" {
		return "compilation error: " + msg
	}
	return "compilation error"
}

func (e *RemoteCompilationError) Is(target error) bool {
	return target == ErrCompilation
}
