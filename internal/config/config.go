package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kcompile/backend/internal/executor"
	"kcompile/backend/internal/normalize"
	"kcompile/backend/internal/ratelimit"
	"kcompile/backend/internal/urlutil"
	"kcompile/backend/pkg/network"
)

const (
	DefaultPort          = "3000"
	DefaultMaxCodeLength = 5000
)

var ErrMissingCredentials = errors.New("JDOODLE_CLIENT_ID and JDOODLE_CLIENT_SECRET must be set")

type Config struct {
	Addr     string
	LogLevel string

	ExecutorURL          string
	ExecutorLanguage     string
	ExecutorVersionIndex string
	ExecutorTimeout      time.Duration
	ExecutorProxy        string
	ExecutorIPStack      string
	ExecutorMaxInFlight  int64
	ExecutorRPS          float64
	ClientID             string
	ClientSecret         string

	RateLimit  int
	RateWindow time.Duration
	RedisURL   string

	MaxCodeLength  int
	WrapStyle      string
	WrapContainer  string
	FailureMarkers []string

	TrustProxy     bool
	EnableSwagger  bool
	AllowedOrigins []string
}

// LoadDotEnv reads .env (or the given files) into the environment. Variables that
// are already set win. A missing file is not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	present := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	return godotenv.Load(present...)
}

func Load() Config {
	addr := os.Getenv("KCS_ADDR")
	if addr == "" {
		port := os.Getenv("PORT")
		if port == "" {
			port = DefaultPort
		}
		addr = ":" + port
	}

	return Config{
		Addr:     addr,
		LogLevel: envOrDefault("KCS_LOG_LEVEL", "info"),

		ExecutorURL:          envOrDefault("KCS_EXECUTOR_URL", executor.DefaultEndpoint),
		ExecutorLanguage:     envOrDefault("KCS_EXECUTOR_LANGUAGE", executor.DefaultLanguage),
		ExecutorVersionIndex: envOrDefault("KCS_EXECUTOR_VERSION_INDEX", executor.DefaultVersionIndex),
		ExecutorTimeout:      envDuration("KCS_EXECUTOR_TIMEOUT", executor.DefaultTimeout),
		ExecutorProxy:        os.Getenv("KCS_EXECUTOR_PROXY"),
		ExecutorIPStack:      envOrDefault("KCS_EXECUTOR_IP_STACK", network.IPStackDefault),
		ExecutorMaxInFlight:  int64(envInt("KCS_EXECUTOR_MAX_IN_FLIGHT", 0)),
		ExecutorRPS:          envFloat("KCS_EXECUTOR_RPS", 0),
		ClientID:             strings.TrimSpace(os.Getenv("JDOODLE_CLIENT_ID")),
		ClientSecret:         strings.TrimSpace(os.Getenv("JDOODLE_CLIENT_SECRET")),

		RateLimit:  envInt("KCS_RATE_LIMIT", ratelimit.DefaultLimit),
		RateWindow: envDuration("KCS_RATE_WINDOW", ratelimit.DefaultWindow),
		RedisURL:   os.Getenv("KCS_REDIS_URL"),

		MaxCodeLength:  envInt("KCS_MAX_CODE_LENGTH", DefaultMaxCodeLength),
		WrapStyle:      envOrDefault("KCS_WRAP_STYLE", string(normalize.WrapFunction)),
		WrapContainer:  envOrDefault("KCS_WRAP_CONTAINER", normalize.DefaultContainerName),
		FailureMarkers: envList("KCS_FAILURE_MARKERS"),

		TrustProxy:     envBool("KCS_TRUST_PROXY", false),
		EnableSwagger:  envBool("KCS_SWAGGER", false),
		AllowedOrigins: envList("KCS_CORS_ORIGINS"),
	}
}

// Validate reports misconfiguration that must stop the process at startup.
func (c Config) Validate() error {
	var errs []error
	if c.ClientID == "" || c.ClientSecret == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	if _, err := normalize.ParseWrapStyle(c.WrapStyle); err != nil {
		errs = append(errs, err)
	}
	if _, err := urlutil.ParseHTTP(c.ExecutorURL); err != nil {
		errs = append(errs, fmt.Errorf("executor url: %w", err))
	}
	if c.ExecutorProxy != "" {
		if _, err := urlutil.ParseProxy(c.ExecutorProxy); err != nil {
			errs = append(errs, fmt.Errorf("executor proxy: %w", err))
		}
	}
	switch c.ExecutorIPStack {
	case network.IPStackDefault, network.IPStackIPv4, network.IPStackIPv6:
	default:
		errs = append(errs, fmt.Errorf("unknown ip stack %q", c.ExecutorIPStack))
	}
	if c.RateLimit <= 0 {
		errs = append(errs, fmt.Errorf("rate limit must be positive, got %d", c.RateLimit))
	}
	if c.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("rate window must be positive, got %s", c.RateWindow))
	}
	if c.ExecutorTimeout <= 0 {
		errs = append(errs, fmt.Errorf("executor timeout must be positive, got %s", c.ExecutorTimeout))
	}
	return errors.Join(errs...)
}

func envOrDefault(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

// envDuration accepts Go durations ("90s") or a bare number of seconds.
func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}

// envList splits a comma-separated variable; unset yields nil.
func envList(key string) []string {
	raw := os.Getenv(key)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	fields := strings.Split(raw, ",")
	out := make([]string, 0, len(fields))
	for _, field := range fields {
		if trimmed := strings.TrimSpace(field); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
