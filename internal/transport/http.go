package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/resilience"
)

// Request is a fully resolved HTTP request.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw outcome of a request.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// HTTP sends requests. Implementations never retry on their own.
type HTTP interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// HTTPFunc adapts a function to HTTP.
type HTTPFunc func(ctx context.Context, req *Request) (*Response, error)

func (f HTTPFunc) Do(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Options configures the resty transport.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// RateLimit is requests per second; zero or less disables limiting.
	RateLimit float64
	// Breaker, when set, rejects requests while open. 5xx responses and
	// network errors count as failures.
	Breaker *resilience.Breaker
	Logger  *zap.Logger
}

// DefaultOptions returns the options used by NewHTTP when none are given.
func DefaultOptions() Options {
	return Options{
		Timeout:   30 * time.Second,
		UserAgent: "netkit/1.0",
	}
}

// Client is the resty backed HTTP transport.
type Client struct {
	resty   *resty.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewHTTP creates the production transport: resty on top of the pooled
// transport from go-retryablehttp, with resty and retryablehttp retries
// disabled so that the only retry is the dispatcher's credential refresh.
func NewHTTP(opts Options) *Client {
	pooled := retryablehttp.NewClient()
	pooled.RetryMax = 0
	pooled.Logger = nil

	r := resty.New().
		SetRetryCount(0).
		SetTransport(pooled.HTTPClient.Transport)
	if opts.Timeout > 0 {
		r.SetTimeout(opts.Timeout)
	}
	if opts.UserAgent != "" {
		r.SetHeader("User-Agent", opts.UserAgent)
	}
	if opts.Logger != nil {
		r.SetLogger(opts.Logger.Named("resty").Sugar())
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}

	return &Client{resty: r, limiter: limiter, breaker: opts.Breaker}
}

// Do sends req once.
func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	var done func(bool)
	if c.breaker != nil {
		var err error
		if done, err = c.breaker.Allow(); err != nil {
			return nil, fmt.Errorf("transport: %s: %w", c.breaker.Name(), err)
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		if done != nil {
			done(true)
		}
		return nil, fmt.Errorf("transport: rate limit: %w", err)
	}

	r := c.resty.R().SetContext(ctx)
	if len(req.Header) > 0 {
		r.SetHeaderMultiValues(req.Header)
	}
	if len(req.Body) > 0 {
		r.SetBody(req.Body)
	}

	resp, err := r.Execute(req.Method, req.URL)
	if done != nil {
		done(err == nil && resp.StatusCode() < http.StatusInternalServerError)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("transport: %s %s: %w", req.Method, req.URL, err)
	}

	return &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		Duration:   resp.Time(),
	}, nil
}
