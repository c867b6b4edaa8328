package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/GriffinCanCode/netkit/internal/auth"
	"github.com/GriffinCanCode/netkit/internal/codec"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/query"
)

// ContentType selects how WithBody serializes a model.
type ContentType string

const (
	ContentTypeJSON ContentType = "application/json; charset=utf-8"
	ContentTypeForm ContentType = "application/x-www-form-urlencoded; charset=utf-8"
	// ContentTypeRaw sends JSON bodies but leaves query values unescaped.
	ContentTypeRaw ContentType = "raw"
)

func (ct ContentType) header() string {
	if ct == ContentTypeRaw {
		return string(ContentTypeJSON)
	}
	return string(ct)
}

// Request describes one HTTP request. It is an immutable value: every With
// method returns a modified copy and leaves the receiver untouched, so a
// Request can be shared between goroutines and reused as a template.
//
// Set the method and content type before the body; WithBody serializes
// according to both.
type Request struct {
	client      *Client
	method      string
	url         *url.URL
	header      http.Header
	body        []byte
	contentType ContentType
	decodeOpts  []codec.Option
	logMode     logging.Mode
	hasLogMode  bool
	err         error
}

// allowsBody reports whether requests of method carry a body. Other methods
// put models in the query string.
func allowsBody(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	}
	return false
}

func (r Request) Method() string { return r.method }

// URL returns the resolved target, or "" for an inert request.
func (r Request) URL() string {
	if r.url == nil {
		return ""
	}
	return r.url.String()
}

// Valid reports whether the request has a target.
func (r Request) Valid() bool { return r.url != nil }

// Err returns the error recorded while building, if any.
func (r Request) Err() error { return r.err }

func (r Request) ContentType() ContentType { return r.contentType }

func (r Request) Header() http.Header { return r.header.Clone() }

func (r Request) Body() []byte {
	if r.body == nil {
		return nil
	}
	return append([]byte(nil), r.body...)
}

// WithMethod changes the method. Switching to a method without a body drops
// the body.
func (r Request) WithMethod(method string) Request {
	r.method = strings.ToUpper(method)
	if !allowsBody(r.method) {
		r.body = nil
	}
	return r
}

// WithHeader sets a header. The key keeps its case; an existing header with
// the same name in any case is replaced.
func (r Request) WithHeader(key, value string) Request {
	r.header = replaceHeader(r.header, key, []string{value})
	return r
}

// WithoutHeader removes a header regardless of case.
func (r Request) WithoutHeader(key string) Request {
	r.header = replaceHeader(r.header, key, nil)
	return r
}

func (r Request) WithContentType(ct ContentType) Request {
	r.contentType = ct
	return r.WithHeader("Content-Type", ct.header())
}

// Authenticate sets a bearer Authorization header from creds.
func (r Request) Authenticate(creds auth.Credentials) Request {
	return r.WithHeader("Authorization", creds.Bearer())
}

func (r Request) WithBearer(token string) Request {
	return r.WithHeader("Authorization", "Bearer "+token)
}

// WithBody serializes model. POST, PUT and PATCH send it as the body, as
// JSON or as a form depending on the content type. Other methods append it
// to the query string: every field is kept, including empty strings and
// repeated list items, and keys already present are replaced so applying
// the same model twice yields the same URL. Query values are percent-encoded
// unless the content type is ContentTypeRaw. opts override the client's
// encode options per kind.
func (r Request) WithBody(model any, opts ...codec.Option) Request {
	if r.url == nil || r.err != nil {
		return r
	}
	enc := codec.New(codec.Merge(opts, r.encodeDefaults())...)

	if !allowsBody(r.method) {
		pairs, err := query.FromModel(enc, model)
		if err != nil {
			r.err = &EncodeError{Err: err}
			return r
		}
		u := *r.url
		u.RawQuery = pairs.AppendTo(u.RawQuery, r.contentType != ContentTypeRaw)
		r.url = &u
		return r
	}

	var data []byte
	var err error
	if r.contentType == ContentTypeForm {
		var pairs query.Pairs
		if pairs, err = query.FromModel(enc, model); err == nil {
			data = []byte(pairs.Encode())
		}
	} else {
		data, err = enc.Marshal(model)
	}
	if err != nil {
		r.err = &EncodeError{Err: err}
		return r
	}
	r.body = data
	return r
}

// WithRawBody sends data as is.
func (r Request) WithRawBody(data []byte) Request {
	if !allowsBody(r.method) {
		r.err = &EncodeError{Err: fmt.Errorf("%s request cannot carry a body", r.method)}
		return r
	}
	r.body = append([]byte(nil), data...)
	return r
}

// WithQuery merges st into the URL query, replacing keys present in st.
func (r Request) WithQuery(st query.State) Request {
	if r.url == nil {
		return r
	}
	u := *r.url
	merged := query.Parse(u.RawQuery).Merge(st)
	if r.contentType == ContentTypeRaw {
		u.RawQuery = merged.EncodeRaw()
	} else {
		u.RawQuery = merged.Encode()
	}
	r.url = &u
	return r
}

// WithDecodeOptions overrides the client's decode options per kind for this
// request's response.
func (r Request) WithDecodeOptions(opts ...codec.Option) Request {
	merged := make([]codec.Option, 0, len(r.decodeOpts)+len(opts))
	merged = append(merged, r.decodeOpts...)
	r.decodeOpts = append(merged, opts...)
	return r
}

// WithLogMode overrides the client's logging mode for this request.
func (r Request) WithLogMode(m logging.Mode) Request {
	r.logMode = m
	r.hasLogMode = true
	return r
}

// Send dispatches the request through the client that built it.
func (r Request) Send(ctx context.Context, out any) (*Response, error) {
	if r.client == nil {
		return nil, ErrInvalidURL
	}
	return r.client.Do(ctx, r, out)
}

func (r Request) encodeDefaults() []codec.Option {
	if r.client == nil {
		return nil
	}
	return r.client.cfg.EncodeOptions
}

func (r Request) decodeDefaults() []codec.Option {
	if r.client == nil {
		return nil
	}
	return r.client.cfg.DecodeOptions
}

// replaceHeader returns a copy of h without key (compared case-insensitively)
// and, when values is non-nil, with key set to values.
func replaceHeader(h http.Header, key string, values []string) http.Header {
	out := make(http.Header, len(h)+1)
	for k, v := range h {
		if !strings.EqualFold(k, key) {
			out[k] = v
		}
	}
	if values != nil {
		out[key] = values
	}
	return out
}
