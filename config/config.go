package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Browser   BrowserConfig
	Scraper   ScraperConfig
	Session   SessionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

// ServerConfig controls the HTTP API server.
type ServerConfig struct {
	Host string // default: "0.0.0.0"
	Port int    // default: 8080
	Mode string // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser engine.
type BrowserConfig struct {
	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool // default: false

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string
}

// ScraperConfig controls retry and timeout behavior.
type ScraperConfig struct {
	// MaxRetries is the attempt budget per fetch. Range: 0-10.
	MaxRetries int // default: 3

	// BackoffBase is the exponential backoff base between attempts.
	BackoffBase float64 // default: 1.5

	// DefaultTimeout is the per-attempt timeout. Range: 1s-300s.
	DefaultTimeout time.Duration // default: 30s

	// MaxTimeout caps the timeout a client may request.
	MaxTimeout time.Duration // default: 300s

	// BatchDelay is the default pause between batch items.
	BatchDelay time.Duration // default: 1s

	// ProxyPool lists egress proxies for rotation on block detection.
	ProxyPool []string
}

// SessionConfig controls the session registry.
type SessionConfig struct {
	// MaxNamed bounds the named-session map; the least recently used
	// session is evicted on overflow.
	MaxNamed int // default: 32
}

// AuthConfig controls API key authentication on the HTTP surface.
type AuthConfig struct {
	// Enabled toggles API key authentication.
	Enabled bool // default: true

	// APIKeys is the list of valid API keys.
	APIKeys []string
}

// RateLimitConfig controls per-key rate limiting on the HTTP surface.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate per API key.
	RequestsPerSecond float64 // default: 5

	// Burst is the maximum burst size per API key.
	Burst int // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string // default: "info"
	Format string // "json" or "text"; default: "json"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host: envOr("PROWL_HOST", "0.0.0.0"),
			Port: envIntOr("PROWL_PORT", 8080),
			Mode: envOr("PROWL_MODE", "release"),
		},
		Browser: BrowserConfig{
			NoSandbox:  envBoolOr("PROWL_NO_SANDBOX", false),
			BrowserBin: os.Getenv("PROWL_BROWSER_BIN"),
		},
		Scraper: ScraperConfig{
			MaxRetries:     envIntOr("PROWL_MAX_RETRIES", 3),
			BackoffBase:    envFloatOr("PROWL_BACKOFF_BASE", 1.5),
			DefaultTimeout: envDurationOr("PROWL_DEFAULT_TIMEOUT", 30*time.Second),
			MaxTimeout:     envDurationOr("PROWL_MAX_TIMEOUT", 300*time.Second),
			BatchDelay:     envDurationOr("PROWL_BATCH_DELAY", time.Second),
			ProxyPool:      envSliceOr("PROWL_PROXY_POOL", nil),
		},
		Session: SessionConfig{
			MaxNamed: envIntOr("PROWL_MAX_SESSIONS", 32),
		},
		Auth: AuthConfig{
			Enabled: envBoolOr("PROWL_AUTH_ENABLED", true),
			APIKeys: envSliceOr("PROWL_API_KEYS", nil),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("PROWL_RATE_RPS", 5.0),
			Burst:             envIntOr("PROWL_RATE_BURST", 10),
		},
		Log: LogConfig{
			Level:  envOr("PROWL_LOG_LEVEL", "info"),
			Format: envOr("PROWL_LOG_FORMAT", "json"),
		},
	}

	cfg.clamp()
	return cfg
}

// clamp enforces the documented ranges on loaded values.
func (c *Config) clamp() {
	if c.Scraper.MaxRetries < 0 {
		c.Scraper.MaxRetries = 0
	}
	if c.Scraper.MaxRetries > 10 {
		c.Scraper.MaxRetries = 10
	}
	if c.Scraper.DefaultTimeout < time.Second {
		c.Scraper.DefaultTimeout = time.Second
	}
	if c.Scraper.DefaultTimeout > 300*time.Second {
		c.Scraper.DefaultTimeout = 300 * time.Second
	}
	if c.Scraper.BackoffBase <= 0 {
		c.Scraper.BackoffBase = 1.5
	}
	if c.Scraper.BatchDelay < 0 {
		c.Scraper.BatchDelay = 0
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
