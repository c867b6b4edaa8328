package client

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrInvalidURL is returned for requests whose target could not be resolved.
var ErrInvalidURL = errors.New("client: invalid URL")

// ServiceError is a non-2xx response that survived any credential refresh.
type ServiceError struct {
	Status int
	Body   []byte
	Header http.Header
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("client: service responded with status %d", e.Status)
}

// Unauthorized reports whether the status is 401 or 403.
func (e *ServiceError) Unauthorized() bool {
	return isAuthFailure(e.Status)
}

// DecodeError is a 2xx response whose body did not match the target model.
type DecodeError struct {
	Status int
	Body   []byte
	Err    error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("client: decode response: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError is a request body that could not be serialized.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("client: encode request: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

// TransportError is a request that got no response at all.
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("client: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func isAuthFailure(status int) bool {
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

func isSuccess(status int) bool {
	return status >= 200 && status <= 299
}
