package handler_test

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"kcompile/backend/internal/executor"
	"kcompile/backend/internal/handler"
	"kcompile/backend/internal/normalize"
	"kcompile/backend/internal/ratelimit"
	"kcompile/backend/internal/service"
	"kcompile/backend/internal/service/mock"
)

var testInfo = handler.ServiceInfo{Message: "Kotlin Compiler Server is running!", Version: "1.0.0", Endpoint: "/compile"}

func TestCompileHandler_Info(t *testing.T) {
	h := handler.NewCompileHandlerHelper(nil, testInfo)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/", nil))

	require.NoError(t, h.Info(c))

	var resp handler.ServiceInfo
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, testInfo, resp)
}

func TestCompileHandler_Health(t *testing.T) {
	h := handler.NewCompileHandlerHelper(nil, testInfo)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodGet, "/healthz", nil))

	require.NoError(t, h.Health(c))

	var resp handler.HealthResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, "ok", resp.Status)
}

func TestCompileHandler_Compile_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockCompileService(ctrl)
	h := handler.NewCompileHandlerHelper(mockService, testInfo)

	mockService.EXPECT().
		Compile(gomock.Any(), "println(1)", "203.0.113.7").
		Return(&service.CompileResult{Success: true, Output: "1\n", StatusCode: 200, CPUTime: "0.5", Memory: "1024"}, nil)

	e := newTestEcho()
	req := newJSONRequest(http.MethodPost, "/compile", map[string]string{"code": "println(1)"})
	req.RemoteAddr = "203.0.113.7:51234"
	c, rec := newTestContext(e, req)

	require.NoError(t, h.Compile(c))

	var resp handler.CompileResponse
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.True(t, resp.Success)
	require.Equal(t, "1\n", resp.Output)
	require.NotNil(t, resp.StatusCode)
	require.Equal(t, 200, *resp.StatusCode)
	require.Equal(t, "0.5", resp.CPUTime)
	require.Equal(t, "1024", resp.Memory)
}

func TestCompileHandler_Compile_FailedRunIsNotHTTPError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockCompileService(ctrl)
	h := handler.NewCompileHandlerHelper(mockService, testInfo)

	mockService.EXPECT().
		Compile(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&service.CompileResult{Success: false, Output: "error: Main class not found", StatusCode: 200}, nil)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequest(http.MethodPost, "/compile", map[string]string{"code": "x"}))

	require.NoError(t, h.Compile(c))

	var resp map[string]any
	assertJSONResponse(t, rec, http.StatusOK, &resp)
	require.Equal(t, false, resp["success"])
	require.Equal(t, float64(200), resp["statusCode"])
	require.NotContains(t, resp, "cpuTime")
}

func TestCompileHandler_Compile_InvalidJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock.NewMockCompileService(ctrl)
	h := handler.NewCompileHandlerHelper(mockService, testInfo)

	e := newTestEcho()
	c, rec := newTestContext(e, newJSONRequestRaw(http.MethodPost, "/compile", `{"code":`))

	require.NoError(t, h.Compile(c))

	var resp map[string]any
	assertJSONResponse(t, rec, http.StatusBadRequest, &resp)
	require.Equal(t, "invalid request", resp["error"])
}

func TestCompileHandler_Compile_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{name: "empty", err: service.ErrEmptySubmission, status: http.StatusBadRequest},
		{name: "too_large", err: service.ErrSubmissionTooLarge, status: http.StatusBadRequest},
		{name: "rate_limited", err: &service.RateLimitedError{RetryAfter: time.Minute}, status: http.StatusTooManyRequests},
		{name: "compilation", err: &service.RemoteCompilationError{Details: map[string]any{"error": "x"}}, status: http.StatusBadRequest},
		{name: "executor", err: service.ErrExecutorUnavailable, status: http.StatusInternalServerError},
		{name: "default", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			mockService := mock.NewMockCompileService(ctrl)
			h := handler.NewCompileHandlerHelper(mockService, testInfo)

			mockService.EXPECT().
				Compile(gomock.Any(), gomock.Any(), gomock.Any()).
				Return(nil, tc.err)

			e := newTestEcho()
			c, rec := newTestContext(e, newJSONRequest(http.MethodPost, "/compile", map[string]string{"code": "x"}))

			require.NoError(t, h.Compile(c))
			require.Equal(t, tc.status, rec.Code)
			require.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

// TestCompileHandler_Compile_EndToEnd drives the handler with the real service,
// normalizer and rate counter, mocking only the executor.
func TestCompileHandler_Compile_EndToEnd(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	exec := mock.NewMockExecutor(ctrl)
	counter := ratelimit.NewMemory(2, time.Hour)
	defer counter.Close()
	svc := service.NewCompileService(counter, normalize.New(), exec, service.CompileOptions{})
	h := handler.NewCompileHandlerHelper(svc, testInfo)
	e := newTestEcho()

	send := func(code string) (int, string) {
		req := newJSONRequest(http.MethodPost, "/compile", map[string]string{"code": code})
		req.RemoteAddr = "198.51.100.4:4000"
		c, rec := newTestContext(e, req)
		require.NoError(t, h.Compile(c))
		return rec.Code, rec.Body.String()
	}

	exec.EXPECT().
		Execute(gomock.Any(), "fun main() {\n    println(\"hi\")\n}").
		Return(&executor.Response{Output: "hi\n", StatusCode: 200, CPUTime: "0.4", Memory: "2048"}, nil)

	status, body := send("package demo\nprintln(\"hi\")")
	require.Equal(t, http.StatusOK, status)
	require.Contains(t, body, `"success":true`)

	status, body = send(strings.Repeat("a", 5001))
	require.Equal(t, http.StatusBadRequest, status)
	require.Contains(t, body, "code is too long")

	status, _ = send("println(1)")
	require.Equal(t, http.StatusTooManyRequests, status)
}
