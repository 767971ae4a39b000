package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"kcompile/backend/internal/service"
)

const unknownCaller = "unknown"

// ServiceInfo is returned by the identity probe on GET /.
type ServiceInfo struct {
	Message  string `json:"message"`
	Version  string `json:"version"`
	Endpoint string `json:"endpoint"`
}

type CompileHandler struct {
	service service.CompileService
	info    ServiceInfo
}

type compileRequest struct {
	Code string `json:"code"`
}

type compileResponse struct {
	Success    bool   `json:"success"`
	Output     string `json:"output"`
	StatusCode *int   `json:"statusCode,omitempty"`
	CPUTime    string `json:"cpuTime,omitempty"`
	Memory     string `json:"memory,omitempty"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func NewCompileHandler(service service.CompileService, info ServiceInfo) *CompileHandler {
	return &CompileHandler{service: service, info: info}
}

func (h *CompileHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/", h.Info)
	g.GET("/healthz", h.Health)
	g.POST("/compile", h.Compile)
}

// Info godoc
// @Summary      Service identity
// @Tags         meta
// @Produce      json
// @Success      200  {object}  ServiceInfo
// @Router       / [get]
func (h *CompileHandler) Info(c echo.Context) error {
	return c.JSON(http.StatusOK, h.info)
}

// Health godoc
// @Summary      Liveness probe
// @Tags         meta
// @Produce      json
// @Success      200  {object}  healthResponse
// @Router       /healthz [get]
func (h *CompileHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, healthResponse{Status: "ok"})
}

// Compile godoc
// @Summary      Normalize and run a Kotlin snippet
// @Description  Compile failures reported by the executor are 200 responses with success=false.
// @Tags         compile
// @Accept       json
// @Produce      json
// @Param        request  body      compileRequest   true  "Kotlin source"
// @Success      200      {object}  compileResponse
// @Failure      400      {object}  errorResponse
// @Failure      429      {object}  errorResponse
// @Failure      500      {object}  errorResponse
// @Router       /compile [post]
func (h *CompileHandler) Compile(c echo.Context) error {
	var req compileRequest
	if err := c.Bind(&req); err != nil {
		return Error(c, http.StatusBadRequest, "invalid request")
	}

	callerID := c.RealIP()
	if callerID == "" {
		callerID = unknownCaller
	}

	result, err := h.service.Compile(c.Request().Context(), req.Code, callerID)
	if err != nil {
		return writeServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toCompileResponse(result))
}

func toCompileResponse(result *service.CompileResult) compileResponse {
	statusCode := result.StatusCode
	return compileResponse{
		Success:    result.Success,
		Output:     result.Output,
		StatusCode: &statusCode,
		CPUTime:    result.CPUTime,
		Memory:     result.Memory,
	}
}
