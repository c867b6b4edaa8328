package client

import (
	"context"
	"net/http"
	"reflect"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/netkit/internal/codec"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/shared/id"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

// Response is the successful outcome of a dispatch.
type Response struct {
	Status    int
	Header    http.Header
	Body      []byte
	RequestID id.RequestID
	// Refreshed is set when the response came from the retry after a
	// credential refresh.
	Refreshed bool
}

// Result pairs a decoded model with its response.
type Result[T any] struct {
	Model T
	Response
}

// Empty is the model for endpoints that answer without a body.
type Empty struct{}

// Dispatch sends req and decodes a 2xx body into a new T.
func Dispatch[T any](ctx context.Context, c *Client, req Request) (*Result[T], error) {
	var model T
	resp, err := c.Do(ctx, req, &model)
	if err != nil {
		return nil, err
	}
	return &Result[T]{Model: model, Response: *resp}, nil
}

// Do sends req and decodes a 2xx body into out, which must be a pointer or
// nil. An empty body sets *out to its zero value.
//
// A 401 or 403 triggers one credential refresh through the configured store.
// If the store yields new credentials they are stored, the request is
// re-authenticated and sent once more; its outcome is final. Every other
// non-2xx status, and a refresh that yields nothing, returns a *ServiceError.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Response, error) {
	if req.url == nil {
		return nil, ErrInvalidURL
	}
	if req.err != nil {
		return nil, req.err
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	x := exchange{
		client: c,
		id:     c.cfg.IDs.Request(),
		mode:   c.cfg.LogMode,
	}
	if req.hasLogMode {
		x.mode = req.logMode
	}

	resp, err := x.send(ctx, req)
	if err != nil {
		return nil, err
	}

	refreshed := false
	if isAuthFailure(resp.StatusCode) && c.cfg.Store != nil {
		if retry, ok := x.refresh(ctx, req, resp.StatusCode); ok {
			if resp, err = x.send(ctx, retry); err != nil {
				return nil, err
			}
			refreshed = true
		}
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &ServiceError{Status: resp.StatusCode, Body: resp.Body, Header: resp.Header}
	}

	if err := x.decode(req, resp, out); err != nil {
		return nil, err
	}
	return &Response{
		Status:    resp.StatusCode,
		Header:    resp.Header,
		Body:      resp.Body,
		RequestID: x.id,
		Refreshed: refreshed,
	}, nil
}

// exchange carries the per-dispatch state shared by the first attempt and
// the retry.
type exchange struct {
	client *Client
	id     id.RequestID
	mode   logging.Mode
}

func (x *exchange) send(ctx context.Context, req Request) (*transport.Response, error) {
	treq := &transport.Request{
		Method: req.method,
		URL:    req.url.String(),
		Header: req.header.Clone(),
		Body:   req.body,
	}
	x.logRequest(treq)

	timer := monitoring.NewTimer(x.client.cfg.Metrics, treq.Method)
	resp, err := x.client.cfg.HTTP.Do(ctx, treq)
	if err != nil {
		timer.Stop(0, 0)
		x.logFailure(treq, err)
		return nil, &TransportError{Method: treq.Method, URL: treq.URL, Err: err}
	}
	elapsed := timer.Stop(resp.StatusCode, len(resp.Body))
	x.logResponse(treq, resp, elapsed)
	return resp, nil
}

// refresh asks the store for new credentials and returns req authenticated
// with whatever the store provides afterwards.
func (x *exchange) refresh(ctx context.Context, req Request, status int) (Request, bool) {
	store := x.client.cfg.Store
	logger := x.client.cfg.Logger

	creds, err := store.FetchNewCredentials(ctx)
	switch {
	case err != nil:
		x.client.cfg.Metrics.RecordRefresh("error")
		logger.Warn("Credential refresh failed",
			zap.String("request_id", x.id.String()),
			zap.Int("status", status),
			zap.Error(err))
		return req, false
	case creds == nil:
		x.client.cfg.Metrics.RecordRefresh("none")
		return req, false
	}

	x.client.cfg.Metrics.RecordRefresh("success")
	store.SetCredentials(*creds)
	if current := store.ProvideCredentials(); current != nil {
		creds = current
	}
	if x.mode != logging.ModeNone {
		logger.Info("Received new credentials", zap.String("request_id", x.id.String()))
	}
	return req.Authenticate(*creds), true
}

func (x *exchange) decode(req Request, resp *transport.Response, out any) error {
	if out == nil {
		return nil
	}
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return &DecodeError{Status: resp.StatusCode, Body: resp.Body, Err: errNotPointer(out)}
	}
	if len(resp.Body) == 0 {
		rv.Elem().SetZero()
		return nil
	}

	dec := codec.New(codec.Merge(req.decodeOpts, req.decodeDefaults())...)
	if err := dec.Unmarshal(resp.Body, out); err != nil {
		x.client.cfg.Logger.Warn("Response body did not decode",
			zap.String("request_id", x.id.String()),
			zap.String("type", rv.Elem().Type().String()),
			zap.Error(err))
		return &DecodeError{Status: resp.StatusCode, Body: resp.Body, Err: err}
	}
	return nil
}

type notPointerError struct{ t reflect.Type }

func (e notPointerError) Error() string {
	if e.t == nil {
		return "decode target is nil"
	}
	return "decode target must be a non-nil pointer, got " + e.t.String()
}

func errNotPointer(out any) error { return notPointerError{t: reflect.TypeOf(out)} }
