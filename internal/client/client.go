package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/auth"
	"github.com/GriffinCanCode/netkit/internal/codec"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/shared/id"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

// Config is shared by every request built from a Client. It must not be
// modified after New.
type Config struct {
	// BaseURL is joined with relative request paths. Absolute paths bypass it.
	BaseURL string
	// Store supplies credentials and refreshes them after 401/403. Optional.
	Store auth.Store
	// HTTP defaults to transport.NewHTTP(transport.DefaultOptions()).
	HTTP transport.HTTP
	// EncodeOptions default to snake_case keys.
	EncodeOptions []codec.Option
	// DecodeOptions default to snake_case keys.
	DecodeOptions []codec.Option
	// Timeout bounds a whole dispatch including the refresh retry. Zero
	// leaves it to the transport and the caller's context.
	Timeout time.Duration
	LogMode logging.Mode
	Logger  logging.FieldLogger
	Metrics *monitoring.Metrics
	IDs     *id.Generator
}

func DefaultEncodeOptions() []codec.Option {
	return []codec.Option{codec.KeyEncoding(codec.KeysSnakeCase)}
}

func DefaultDecodeOptions() []codec.Option {
	return []codec.Option{codec.KeyDecoding(codec.KeysSnakeCase)}
}

// Client builds and dispatches requests. It is safe for concurrent use.
type Client struct {
	cfg  Config
	base *url.URL
}

// New validates cfg and fills in defaults.
func New(cfg Config) (*Client, error) {
	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("client: base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("client: base url %q must be absolute", cfg.BaseURL)
		}
		if u.Path == "" {
			u.Path = "/"
		}
		base = u
	}

	if cfg.HTTP == nil {
		cfg.HTTP = transport.NewHTTP(transport.DefaultOptions())
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.IDs == nil {
		cfg.IDs = id.Default()
	}
	if cfg.EncodeOptions == nil {
		cfg.EncodeOptions = DefaultEncodeOptions()
	}
	if cfg.DecodeOptions == nil {
		cfg.DecodeOptions = DefaultDecodeOptions()
	}
	cfg.EncodeOptions = append([]codec.Option(nil), cfg.EncodeOptions...)
	cfg.DecodeOptions = append([]codec.Option(nil), cfg.DecodeOptions...)

	return &Client{cfg: cfg, base: base}, nil
}

// Config returns a copy of the resolved configuration.
func (c *Client) Config() Config {
	cfg := c.cfg
	cfg.EncodeOptions = append([]codec.Option(nil), c.cfg.EncodeOptions...)
	cfg.DecodeOptions = append([]codec.Option(nil), c.cfg.DecodeOptions...)
	return cfg
}

// NewRequest starts a request for path. A path with a scheme is used as is;
// anything else is joined to the base URL. When the target cannot be
// resolved the request is inert and dispatching it fails with ErrInvalidURL.
func (c *Client) NewRequest(method, path string) Request {
	r := Request{
		client: c,
		method: strings.ToUpper(method),
		header: http.Header{
			"Accept":       {"application/json"},
			"Content-Type": {string(ContentTypeJSON)},
		},
		contentType: ContentTypeJSON,
	}
	r.url = c.resolve(path)

	if c.cfg.Store != nil {
		if creds := c.cfg.Store.ProvideCredentials(); creds != nil {
			r.header["Authorization"] = []string{creds.Bearer()}
		}
	}
	return r
}

func (c *Client) Get(path string) Request    { return c.NewRequest(http.MethodGet, path) }
func (c *Client) Post(path string) Request   { return c.NewRequest(http.MethodPost, path) }
func (c *Client) Put(path string) Request    { return c.NewRequest(http.MethodPut, path) }
func (c *Client) Patch(path string) Request  { return c.NewRequest(http.MethodPatch, path) }
func (c *Client) Delete(path string) Request { return c.NewRequest(http.MethodDelete, path) }

func (c *Client) resolve(path string) *url.URL {
	ref, err := url.Parse(path)
	if err != nil {
		return nil
	}
	if ref.IsAbs() {
		if ref.Host == "" {
			return nil
		}
		return ref
	}
	if c.base == nil {
		return nil
	}
	u := c.base.JoinPath(ref.Path)
	u.RawQuery = ref.RawQuery
	return u
}
