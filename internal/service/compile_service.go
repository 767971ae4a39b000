//go:generate mockgen -source=$GOFILE -destination=mock/$GOFILE -package=mock
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"kcompile/backend/internal/executor"
	"kcompile/backend/internal/ratelimit"
	"kcompile/backend/pkg/logger"
)

const (
	DefaultMaxCodeLength = 5000
	DefaultSuccessStatus = 200
	DefaultEmptyOutput   = "No output"
)

// DefaultFailureMarkers are output fragments that mean the unit never ran even
// though the executor reported success.
var DefaultFailureMarkers = []string{
	"Main class not found",
	"Could not find or load main class",
}

type Executor interface {
	Execute(ctx context.Context, script string) (*executor.Response, error)
}

type Normalizer interface {
	Normalize(raw string) string
}

type CompileService interface {
	Compile(ctx context.Context, code, callerID string) (*CompileResult, error)
}

type CompileResult struct {
	Success    bool
	Output     string
	StatusCode int
	CPUTime    string
	Memory     string
}

type CompileOptions struct {
	MaxCodeLength  int
	SuccessStatus  int
	FailureMarkers []string
	EmptyOutput    string
}

type compileService struct {
	counter    ratelimit.Counter
	normalizer Normalizer
	executor   Executor
	opts       CompileOptions
	markers    []string
}

func NewCompileService(counter ratelimit.Counter, normalizer Normalizer, exec Executor, opts CompileOptions) CompileService {
	if opts.MaxCodeLength <= 0 {
		opts.MaxCodeLength = DefaultMaxCodeLength
	}
	if opts.SuccessStatus == 0 {
		opts.SuccessStatus = DefaultSuccessStatus
	}
	if opts.FailureMarkers == nil {
		opts.FailureMarkers = DefaultFailureMarkers
	}
	if opts.EmptyOutput == "" {
		opts.EmptyOutput = DefaultEmptyOutput
	}

	markers := make([]string, 0, len(opts.FailureMarkers))
	for _, m := range opts.FailureMarkers {
		if m = strings.TrimSpace(m); m != "" {
			markers = append(markers, strings.ToLower(m))
		}
	}

	return &compileService{
		counter:    counter,
		normalizer: normalizer,
		executor:   exec,
		opts:       opts,
		markers:    markers,
	}
}

func (s *compileService) Compile(ctx context.Context, code, callerID string) (*CompileResult, error) {
	if err := s.admit(ctx, callerID); err != nil {
		return nil, err
	}

	if strings.TrimSpace(code) == "" {
		return nil, ErrEmptySubmission
	}
	if utf8.RuneCountInString(code) > s.opts.MaxCodeLength {
		return nil, ErrSubmissionTooLarge
	}

	unit := s.normalizer.Normalize(code)

	resp, err := s.executor.Execute(ctx, unit)
	if err != nil {
		var remoteErr *executor.RemoteError
		if errors.As(err, &remoteErr) {
			logger.Info("compile rejected", "module", "service", "action", "compile", "resource", "script", "result", "rejected", "caller", callerID, "http_status", remoteErr.HTTPStatus)
			return nil, &RemoteCompilationError{Details: remoteErr.Details}
		}
		logger.Error("compile failed", "module", "service", "action", "compile", "resource", "script", "result", "failed", "caller", callerID, "timeout", executor.IsTimeout(err), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrExecutorUnavailable, err)
	}

	output := resp.Output
	if output == "" {
		output = s.opts.EmptyOutput
	}
	result := &CompileResult{
		Success:    resp.StatusCode == s.opts.SuccessStatus && !s.hasFailureMarker(resp.Output),
		Output:     output,
		StatusCode: resp.StatusCode,
		CPUTime:    resp.CPUTime.String(),
		Memory:     resp.Memory.String(),
	}

	logger.Info("compile finished", "module", "service", "action", "compile", "resource", "script", "result", "ok", "caller", callerID, "status_code", result.StatusCode, "success", result.Success)
	return result, nil
}

// admit fails open when the counter backend errors, so a Redis outage does not
// take the relay down with it.
func (s *compileService) admit(ctx context.Context, callerID string) error {
	decision, err := s.counter.Admit(ctx, callerID)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrExecutorUnavailable, ctxErr)
		}
		logger.Warn("rate counter unavailable", "module", "service", "action", "admit", "resource", "rate_counter", "result", "failed", "caller", callerID, "error", err)
		return nil
	}
	if !decision.Allowed {
		logger.Info("compile rate limited", "module", "service", "action", "admit", "resource", "rate_counter", "result", "rejected", "caller", callerID, "count", decision.Count, "limit", decision.Limit)
		return &RateLimitedError{RetryAfter: decision.RetryAfter}
	}
	return nil
}

func (s *compileService) hasFailureMarker(output string) bool {
	if output == "" || len(s.markers) == 0 {
		return false
	}
	lower := strings.ToLower(output)
	for _, m := range s.markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}
