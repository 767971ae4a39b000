package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"kcompile/backend/internal/urlutil"
	"kcompile/backend/pkg/logger"
	"kcompile/backend/pkg/network"
)

const (
	DefaultEndpoint     = "https://api.jdoodle.com/v1/execute"
	DefaultLanguage     = "kotlin"
	DefaultVersionIndex = "0"
	DefaultTimeout      = 15 * time.Second

	maxResponseBytes = 4 << 20
)

type Config struct {
	Endpoint     string
	Language     string
	VersionIndex string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
	// MaxInFlight caps concurrent executor calls; 0 means unlimited.
	MaxInFlight int64
	// RequestsPerSecond throttles outbound calls; 0 means unlimited.
	RequestsPerSecond float64
	Burst             int
}

// Client submits normalized units to a JDoodle-compatible execution endpoint.
// Calls are never retried.
type Client struct {
	cfg        Config
	host       string
	httpClient *http.Client
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
}

func New(cfg Config, clientFactory *network.ClientFactory) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	parsed, err := urlutil.ParseHTTP(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid executor endpoint: %w", err)
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.VersionIndex == "" {
		cfg.VersionIndex = DefaultVersionIndex
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if clientFactory == nil {
		clientFactory = network.NewClientFactory(nil, nil)
	}

	c := &Client{
		cfg:        cfg,
		host:       parsed.Host,
		httpClient: clientFactory.NewHTTPClient(context.Background(), cfg.Timeout),
	}
	if cfg.MaxInFlight > 0 {
		c.sem = semaphore.NewWeighted(cfg.MaxInFlight)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return c, nil
}

// Execute runs script remotely. A structured rejection is returned as *RemoteError;
// every other failure wraps ErrTransport.
func (c *Client) Execute(ctx context.Context, script string) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	if c.sem != nil {
		if err := c.sem.Acquire(ctx, 1); err != nil {
			return nil, fmt.Errorf("%w: wait for slot: %w", ErrTransport, err)
		}
		defer c.sem.Release(1)
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: throttled: %w", ErrTransport, err)
		}
	}

	payload, err := json.Marshal(executeRequest{
		Script:       script,
		Language:     c.cfg.Language,
		VersionIndex: c.cfg.VersionIndex,
		ClientID:     c.cfg.ClientID,
		ClientSecret: c.cfg.ClientSecret,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode request: %w", ErrTransport, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %w", ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("executor request failed", "module", "executor", "action", "execute", "resource", "script", "result", "failed", "host", c.host, "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Warn("executor read failed", "module", "executor", "action", "execute", "resource", "script", "result", "failed", "host", c.host, "error", err)
		return nil, fmt.Errorf("%w: read body: %w", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if details := decodeDetails(data); details != nil {
			logger.Info("executor rejected script", "module", "executor", "action", "execute", "resource", "script", "result", "rejected", "host", c.host, "status_code", resp.StatusCode)
			return nil, &RemoteError{HTTPStatus: resp.StatusCode, Details: details}
		}
		logger.Error("executor http error", "module", "executor", "action", "execute", "resource", "script", "result", "failed", "host", c.host, "status_code", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %d", ErrTransport, resp.StatusCode)
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		logger.Error("executor response malformed", "module", "executor", "action", "decode", "resource", "script", "result", "failed", "host", c.host, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	if out.Error != "" && out.StatusCode == 0 && out.Output == "" {
		return nil, &RemoteError{HTTPStatus: resp.StatusCode, Details: decodeDetails(data)}
	}

	logger.Debug("executor responded", "module", "executor", "action", "execute", "resource", "script", "result", "ok", "host", c.host, "status_code", out.StatusCode, "duration_ms", time.Since(start).Milliseconds())
	return &out, nil
}

// decodeDetails returns the body as a JSON object, or nil when it is not one.
func decodeDetails(data []byte) map[string]any {
	var details map[string]any
	if err := json.Unmarshal(data, &details); err != nil || len(details) == 0 {
		return nil
	}
	return details
}

// IsTimeout reports whether err came from the request deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
