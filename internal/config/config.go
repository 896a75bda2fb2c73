package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

var (
	ErrInvalidPort         = errors.New("HTTP_PORT must be between 1 and 65535")
	ErrInvalidSearchURL    = errors.New("SEARCH_BASE_URL must be an absolute http(s) url")
	ErrInvalidUploadURL    = errors.New("UPLOAD_BASE_URL must be an absolute http(s) url")
	ErrInvalidProbeTimeout = errors.New("SEARCH_PROBE_TIMEOUT must be positive")
	ErrInvalidDownload     = errors.New("DOWNLOAD_TIMEOUT and DOWNLOAD_MAX_BYTES must be positive")
	ErrNegativeTimeout     = errors.New("timeouts must not be negative")
	ErrInvalidRateLimit    = errors.New("RATE_LIMIT_PER_MINUTE must not be negative")
	ErrInvalidExpiration   = errors.New("UPLOAD_EXPIRATION must be 0 or between 60 and 15552000 seconds")
	ErrInvalidProxy        = errors.New("HTTP_TRUSTED_PROXIES must list IP addresses or CIDR ranges")
)

type Config struct {
	HTTP      HTTPConfig      `envPrefix:"HTTP_"`
	Search    SearchConfig    `envPrefix:"SEARCH_"`
	Download  DownloadConfig  `envPrefix:"DOWNLOAD_"`
	Upload    UploadConfig    `envPrefix:"UPLOAD_"`
	Log       LogConfig       `envPrefix:"LOG_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
	Metrics   MetricsConfig   `envPrefix:"METRICS_"`
}

type HTTPConfig struct {
	Host            string        `env:"HOST"`
	Port            int           `env:"PORT" envDefault:"8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	StaticDir       string        `env:"STATIC_DIR" envDefault:"static"`
	CORSOrigins     []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`
	// пусто - X-Forwarded-For не доверяем никому, лимит по адресу соединения
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

type SearchConfig struct {
	BaseURL      string        `env:"BASE_URL" envDefault:"https://www.bing.com"`
	UserAgent    string        `env:"USER_AGENT" envDefault:"Mozilla/5.0"`
	Referer      string        `env:"REFERER" envDefault:"https://www.bing.com/"`
	Timeout      time.Duration `env:"TIMEOUT" envDefault:"15s"`
	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"5s"`
}

type DownloadConfig struct {
	Timeout  time.Duration `env:"TIMEOUT" envDefault:"10s"`
	MaxBytes int64         `env:"MAX_BYTES" envDefault:"33554432"`
}

type UploadConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"https://api.imgbb.com"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"30s"`
	// секунды, 0 - не передавать expiration
	Expiration int `env:"EXPIRATION" envDefault:"0"`
}

type LogConfig struct {
	Level  string `env:"LEVEL" envDefault:"info"`
	// пусто - формат выбирается по уровню: debug - console, иначе json
	Format string `env:"FORMAT"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `env:"PER_MINUTE" envDefault:"0"`
}

type MetricsConfig struct {
	Enabled bool   `env:"ENABLED" envDefault:"true"`
	Addr    string `env:"ADDR"`
	Path    string `env:"PATH" envDefault:"/metrics"`
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTP.Port < 1 || c.HTTP.Port > 65535 {
		return ErrInvalidPort
	}
	if !isHTTPURL(c.Search.BaseURL) {
		return ErrInvalidSearchURL
	}
	if !isHTTPURL(c.Upload.BaseURL) {
		return ErrInvalidUploadURL
	}
	if c.Search.ProbeTimeout <= 0 {
		return ErrInvalidProbeTimeout
	}
	if c.Download.Timeout <= 0 || c.Download.MaxBytes <= 0 {
		return ErrInvalidDownload
	}
	if c.Search.Timeout < 0 || c.Upload.Timeout < 0 || c.HTTP.ShutdownTimeout < 0 {
		return ErrNegativeTimeout
	}
	if c.RateLimit.RequestsPerMinute < 0 {
		return ErrInvalidRateLimit
	}
	// imgbb принимает expiration от 60 секунд до 180 дней
	if c.Upload.Expiration != 0 && (c.Upload.Expiration < 60 || c.Upload.Expiration > 15552000) {
		return ErrInvalidExpiration
	}
	for _, p := range c.HTTP.TrustedProxies {
		if !isIPOrCIDR(p) {
			return fmt.Errorf("%w: %q", ErrInvalidProxy, p)
		}
	}
	return nil
}

// Addr - адрес основного listener'а.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.HTTP.Host, c.HTTP.Port)
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func isIPOrCIDR(raw string) bool {
	if net.ParseIP(raw) != nil {
		return true
	}
	_, _, err := net.ParseCIDR(raw)
	return err == nil
}
