package app

import (
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/auth"
	"github.com/GriffinCanCode/netkit/internal/client"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/config"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/server"
	"github.com/GriffinCanCode/netkit/internal/transport"
	"github.com/GriffinCanCode/netkit/internal/ws"
)

// Toolkit wires the client, credential store and socket dialer from one
// configuration.
type Toolkit struct {
	Config  *config.Config
	Logger  *logging.Logger
	Metrics *monitoring.Metrics
	Store   auth.Store
	HTTP    *transport.Client
	Client  *client.Client
	Dialer  transport.Dialer
	// Breaker is nil unless enabled in the configuration.
	Breaker *resilience.Breaker
}

// New builds a toolkit and its logger from cfg.
func New(cfg *config.Config) (*Toolkit, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return NewWithLogger(cfg, logger)
}

// NewWithLogger is New with a caller-supplied logger. cfg is validated
// first.
func NewWithLogger(cfg *config.Config, logger *logging.Logger) (*Toolkit, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	t := &Toolkit{
		Config:  cfg,
		Logger:  logger,
		Metrics: monitoring.NewMetrics(),
	}

	if cfg.Breaker.Enabled {
		t.Breaker = newBreaker(cfg.Breaker, logger.Named("breaker"))
	}

	opts := transport.DefaultOptions()
	opts.Timeout = cfg.Client.Timeout.Std()
	if cfg.Client.UserAgent != "" {
		opts.UserAgent = cfg.Client.UserAgent
	}
	if cfg.RateLimit.Enabled {
		opts.RateLimit = cfg.RateLimit.RequestsPerSecond
	}
	opts.Breaker = t.Breaker
	opts.Logger = logger.Named("http")
	t.HTTP = transport.NewHTTP(opts)

	store, err := t.newStore()
	if err != nil {
		return nil, err
	}
	t.Store = store

	t.Client, err = client.New(client.Config{
		BaseURL: cfg.Client.BaseURL,
		Store:   store,
		HTTP:    t.HTTP,
		LogMode: cfg.Client.LogMode,
		Logger:  logger.Named("client"),
		Metrics: t.Metrics,
	})
	if err != nil {
		return nil, err
	}

	t.Dialer = transport.NewGorillaDialer(logger.Named("socket"))

	logger.Info("Toolkit initialized",
		zap.String("base_url", cfg.Client.BaseURL),
		zap.Stringer("log_mode", cfg.Client.LogMode),
		zap.Bool("refresh", cfg.Auth.ClientID != ""),
		zap.Bool("breaker", t.Breaker != nil),
	)
	return t, nil
}

func (t *Toolkit) newStore() (auth.Store, error) {
	cfg := t.Config.Auth

	var initial *auth.Credentials
	if cfg.AccessToken != "" {
		initial = &auth.Credentials{AccessToken: cfg.AccessToken, TokenType: "bearer"}
	}

	var fetcher auth.Fetcher
	if cfg.ClientID != "" {
		tokenURL, err := t.tokenURL()
		if err != nil {
			return nil, err
		}
		fetcher = auth.NewClientCredentialsFetcher(
			t.HTTP,
			tokenURL,
			auth.NewClientCredentials(cfg.ClientID, cfg.ClientSecret),
			t.Logger.Named("auth"),
		)
	}

	var store auth.Store = auth.NewMemoryStore(initial, fetcher)
	if cfg.SingleFlight {
		store = auth.NewSingleFlight(store)
	}
	return store, nil
}

// tokenURL resolves the token path against the base URL. An absolute
// token path is used as is.
func (t *Toolkit) tokenURL() (string, error) {
	path := t.Config.Auth.TokenPath
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path, nil
	}
	if t.Config.Client.BaseURL == "" {
		return "", fmt.Errorf("auth.token_path %q needs client.base_url", path)
	}
	base, err := url.Parse(t.Config.Client.BaseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base url: %w", err)
	}
	return base.JoinPath(strings.TrimPrefix(path, "/")).String(), nil
}

// NewSession returns a WebSocket session configured from the toolkit.
func (t *Toolkit) NewSession() *ws.Session {
	wsCfg := ws.DefaultConfig()
	wsCfg.PingInterval = t.Config.WebSocket.PingInterval.Std()
	wsCfg.PongTimeout = t.Config.WebSocket.PongTimeout.Std()
	wsCfg.ReconnectTimeout = t.Config.WebSocket.ReconnectTimeout.Std()
	wsCfg.Verbose = t.Config.WebSocket.Verbose
	wsCfg.EncodeOptions = t.Client.Config().EncodeOptions
	wsCfg.Logger = t.Logger.Named("ws")
	wsCfg.Metrics = t.Metrics
	return ws.NewSession(t.Dialer, wsCfg)
}

// Target builds a socket target for path carrying the current credentials.
func (t *Toolkit) Target(path string) (ws.Target, error) {
	return ws.FromRequest(t.Client.Get(path))
}

// MetricsServer returns the HTTP server exposing the toolkit metrics.
func (t *Toolkit) MetricsServer() *server.Server {
	return server.New(t.Metrics, t.Logger.Named("metrics"), t.Config.Logging.Development)
}

// Close flushes the logger.
func (t *Toolkit) Close() error {
	_ = t.Logger.Sync()
	return nil
}

func newBreaker(cfg config.BreakerConfig, logger *zap.Logger) *resilience.Breaker {
	threshold := cfg.FailureThreshold
	return resilience.New("http", resilience.Settings{
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval.Std(),
		Timeout:     cfg.Timeout.Std(),
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})
}
