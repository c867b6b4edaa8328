package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
)

// Config holds all toolkit configuration.
type Config struct {
	Client    ClientConfig    `yaml:"client" toml:"client"`
	Auth      AuthConfig      `yaml:"auth" toml:"auth"`
	Logging   LogConfig       `yaml:"logging" toml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit" toml:"rate_limit"`
	Breaker   BreakerConfig   `yaml:"breaker" toml:"breaker"`
	WebSocket WebSocketConfig `yaml:"websocket" toml:"websocket"`
	Metrics   MetricsConfig   `yaml:"metrics" toml:"metrics"`
}

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	BaseURL   string       `envconfig:"NETKIT_BASE_URL" yaml:"base_url" toml:"base_url"`
	Timeout   Duration     `envconfig:"NETKIT_TIMEOUT" yaml:"timeout" toml:"timeout"`
	UserAgent string       `envconfig:"NETKIT_USER_AGENT" yaml:"user_agent" toml:"user_agent"`
	LogMode   logging.Mode `envconfig:"NETKIT_LOG_MODE" yaml:"log_mode" toml:"log_mode"`
}

// AuthConfig holds credential configuration. With a client id set, expired
// tokens are refreshed with the client-credentials grant at TokenPath.
type AuthConfig struct {
	AccessToken  string `envconfig:"NETKIT_ACCESS_TOKEN" yaml:"access_token" toml:"access_token"`
	TokenPath    string `envconfig:"NETKIT_TOKEN_PATH" yaml:"token_path" toml:"token_path"`
	ClientID     string `envconfig:"NETKIT_CLIENT_ID" yaml:"client_id" toml:"client_id"`
	ClientSecret string `envconfig:"NETKIT_CLIENT_SECRET" yaml:"client_secret" toml:"client_secret"`
	SingleFlight bool   `envconfig:"NETKIT_AUTH_SINGLE_FLIGHT" yaml:"single_flight" toml:"single_flight"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"NETKIT_LOG_LEVEL" yaml:"level" toml:"level"`
	Development bool   `envconfig:"NETKIT_LOG_DEV" yaml:"development" toml:"development"`
}

// RateLimitConfig holds client-side rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond float64 `envconfig:"NETKIT_RATE_LIMIT_RPS" yaml:"requests_per_second" toml:"requests_per_second"`
	Enabled           bool    `envconfig:"NETKIT_RATE_LIMIT_ENABLED" yaml:"enabled" toml:"enabled"`
}

// BreakerConfig holds circuit breaker configuration.
type BreakerConfig struct {
	Enabled          bool     `envconfig:"NETKIT_BREAKER_ENABLED" yaml:"enabled" toml:"enabled"`
	MaxRequests      uint32   `envconfig:"NETKIT_BREAKER_MAX_REQUESTS" yaml:"max_requests" toml:"max_requests"`
	Interval         Duration `envconfig:"NETKIT_BREAKER_INTERVAL" yaml:"interval" toml:"interval"`
	Timeout          Duration `envconfig:"NETKIT_BREAKER_TIMEOUT" yaml:"timeout" toml:"timeout"`
	FailureThreshold uint32   `envconfig:"NETKIT_BREAKER_FAILURES" yaml:"failure_threshold" toml:"failure_threshold"`
}

// WebSocketConfig holds session configuration.
type WebSocketConfig struct {
	PingInterval     Duration `envconfig:"NETKIT_WS_PING_INTERVAL" yaml:"ping_interval" toml:"ping_interval"`
	PongTimeout      Duration `envconfig:"NETKIT_WS_PONG_TIMEOUT" yaml:"pong_timeout" toml:"pong_timeout"`
	ReconnectTimeout Duration `envconfig:"NETKIT_WS_RECONNECT_TIMEOUT" yaml:"reconnect_timeout" toml:"reconnect_timeout"`
	Verbose          bool     `envconfig:"NETKIT_WS_VERBOSE" yaml:"verbose" toml:"verbose"`
}

// MetricsConfig holds the Prometheus endpoint configuration. An empty
// address disables the endpoint.
type MetricsConfig struct {
	Addr string `envconfig:"NETKIT_METRICS_ADDR" yaml:"addr" toml:"addr"`
}

// Load returns the defaults overridden by environment variables.
func Load() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// LoadFile layers defaults, the file at path and then the environment.
// The format follows the extension: .yaml, .yml or .toml.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if err := envconfig.Process("", cfg); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Client: ClientConfig{
			Timeout:   Duration(30 * time.Second),
			UserAgent: "netkit/1.0",
			LogMode:   logging.ModeNormal,
		},
		Auth: AuthConfig{
			TokenPath: "/auth/v1/oauth/tokens",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 10,
			Enabled:           false,
		},
		Breaker: BreakerConfig{
			Enabled:          false,
			MaxRequests:      1,
			Interval:         Duration(time.Minute),
			Timeout:          Duration(30 * time.Second),
			FailureThreshold: 5,
		},
		WebSocket: WebSocketConfig{
			PingInterval:     Duration(30 * time.Second),
			ReconnectTimeout: Duration(10 * time.Second),
		},
	}
}

// Validate reports configuration that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	if c.Client.BaseURL != "" {
		u, err := url.Parse(c.Client.BaseURL)
		if err != nil || !u.IsAbs() || u.Host == "" {
			errs = append(errs, fmt.Errorf("client.base_url %q is not an absolute URL", c.Client.BaseURL))
		}
	}
	if c.Client.Timeout < 0 {
		errs = append(errs, errors.New("client.timeout must not be negative"))
	}
	if c.Auth.ClientID != "" && c.Auth.ClientSecret == "" {
		errs = append(errs, errors.New("auth.client_secret is required with auth.client_id"))
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		errs = append(errs, errors.New("rate_limit.requests_per_second must be positive"))
	}
	if c.Breaker.Enabled && c.Breaker.FailureThreshold == 0 {
		errs = append(errs, errors.New("breaker.failure_threshold must be positive"))
	}
	if c.WebSocket.ReconnectTimeout <= 0 {
		errs = append(errs, errors.New("websocket.reconnect_timeout must be positive"))
	}
	return errors.Join(errs...)
}
