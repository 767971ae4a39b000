// @title           Kotlin Compiler Server
// @version         1.0.0
// @description     Normalizes Kotlin snippets and relays them to a remote executor.
// @BasePath        /
package main

import (
	"context"
	"errors"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kcompile/backend/internal/config"
	"kcompile/backend/internal/executor"
	"kcompile/backend/internal/handler"
	apphttp "kcompile/backend/internal/http"
	"kcompile/backend/internal/normalize"
	"kcompile/backend/internal/ratelimit"
	"kcompile/backend/internal/service"
	"kcompile/backend/pkg/logger"
	"kcompile/backend/pkg/network"
)

const (
	serviceVersion  = "1.0.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logger.Error("load .env", "module", "main", "action", "load", "resource", "config", "result", "failed", "error", err)
		os.Exit(1)
	}
	cfg := config.Load()
	logger.Init(logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("server stopped", "module", "main", "action", "run", "resource", "server", "result", "failed", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	counter, err := newCounter(ctx, cfg)
	if err != nil {
		return err
	}
	defer counter.Close()

	svc, err := newCompileService(cfg, counter)
	if err != nil {
		return err
	}

	h := handler.NewCompileHandler(svc, handler.ServiceInfo{
		Message:  "Kotlin Compiler Server is running!",
		Version:  serviceVersion,
		Endpoint: "/compile",
	})
	e := apphttp.NewRouter(h, apphttp.RouterOptions{
		AllowOrigins:  cfg.AllowedOrigins,
		TrustProxy:    cfg.TrustProxy,
		EnableSwagger: cfg.EnableSwagger,
	})

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "module", "main", "action", "start", "resource", "server", "result", "ok", "addr", cfg.Addr)
		if err := e.Start(cfg.Addr); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Info("server stopped", "module", "main", "action", "shutdown", "resource", "server", "result", "ok")
	return nil
}

func newCounter(ctx context.Context, cfg config.Config) (ratelimit.Counter, error) {
	if cfg.RedisURL == "" {
		return ratelimit.NewMemory(cfg.RateLimit, cfg.RateWindow), nil
	}
	counter, err := ratelimit.NewRedisFromURL(ctx, cfg.RedisURL, cfg.RateLimit, cfg.RateWindow)
	if err != nil {
		return nil, err
	}
	logger.Info("using redis rate counter", "module", "main", "action", "init", "resource", "rate_counter", "result", "ok")
	return counter, nil
}

func newCompileService(cfg config.Config, counter ratelimit.Counter) (service.CompileService, error) {
	style, err := normalize.ParseWrapStyle(cfg.WrapStyle)
	if err != nil {
		return nil, err
	}
	normalizer := normalize.New(normalize.WithWrapStyle(style), normalize.WithContainerName(cfg.WrapContainer))
	logger.Info("normalizer ready", "module", "main", "action", "init", "resource", "normalizer", "result", "ok", "wrap_style", normalizer.Style())

	outbound := network.StaticProvider{ProxyURL: cfg.ExecutorProxy, IPStack: cfg.ExecutorIPStack}
	exec, err := executor.New(executor.Config{
		Endpoint:          cfg.ExecutorURL,
		Language:          cfg.ExecutorLanguage,
		VersionIndex:      cfg.ExecutorVersionIndex,
		ClientID:          cfg.ClientID,
		ClientSecret:      cfg.ClientSecret,
		Timeout:           cfg.ExecutorTimeout,
		MaxInFlight:       cfg.ExecutorMaxInFlight,
		RequestsPerSecond: cfg.ExecutorRPS,
	}, network.NewClientFactory(outbound, outbound))
	if err != nil {
		return nil, err
	}

	return service.NewCompileService(counter, normalizer, exec, service.CompileOptions{
		MaxCodeLength:  cfg.MaxCodeLength,
		FailureMarkers: cfg.FailureMarkers,
	}), nil
}
