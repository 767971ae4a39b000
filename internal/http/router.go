package http

import (
	nethttp "net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "kcompile/backend/docs"
	"kcompile/backend/internal/handler"
	"kcompile/backend/pkg/logger"
)

const DefaultBodyLimit = "1M"

type RouterOptions struct {
	// BodyLimit uses echo's size syntax, e.g. "1M".
	BodyLimit string
	// AllowOrigins for CORS; empty allows any origin.
	AllowOrigins []string
	// TrustProxy takes the caller address from X-Forwarded-For instead of the socket.
	TrustProxy    bool
	EnableSwagger bool
}

func NewRouter(compileHandler *handler.CompileHandler, opts RouterOptions) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	if opts.TrustProxy {
		e.IPExtractor = echo.ExtractIPFromXFFHeader()
	} else {
		e.IPExtractor = echo.ExtractIPDirect()
	}

	bodyLimit := opts.BodyLimit
	if bodyLimit == "" {
		bodyLimit = DefaultBodyLimit
	}
	allowOrigins := opts.AllowOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(RequestLoggerMiddleware())
	e.Use(RecoverMiddleware())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{nethttp.MethodGet, nethttp.MethodPost, nethttp.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAccept},
	}))
	e.Use(middleware.BodyLimit(bodyLimit))

	if opts.EnableSwagger {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	compileHandler.RegisterRoutes(e.Group(""))

	return e
}

// jsonErrorHandler keeps framework errors (404, 405, 413, bind failures) in the
// same {success, error} shape as handler responses.
func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := nethttp.StatusInternalServerError
	message := "internal server error"
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if status < nethttp.StatusInternalServerError {
			message = strings.ToLower(nethttp.StatusText(status))
		}
	}
	if status >= nethttp.StatusInternalServerError {
		logger.Error("unhandled request error", "module", "http", "action", "serve", "resource", "request", "result", "failed", "path", c.Path(), "error", err)
	}

	if c.Request().Method == nethttp.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, map[string]any{"success": false, "error": message})
}
