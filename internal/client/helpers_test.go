package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/GriffinCanCode/netkit/internal/auth"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

// spyTransport answers requests from a handler and records every call.
type spyTransport struct {
	mu      sync.Mutex
	calls   []*transport.Request
	handler func(req *transport.Request) (*transport.Response, error)
}

func newSpy(handler func(req *transport.Request) (*transport.Response, error)) *spyTransport {
	return &spyTransport{handler: handler}
}

func (s *spyTransport) Do(ctx context.Context, req *transport.Request) (*transport.Response, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	s.mu.Unlock()
	return s.handler(req)
}

func (s *spyTransport) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *spyTransport) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		u, _ := url.Parse(c.URL)
		out[i] = u.Path
	}
	return out
}

func reply(status int, body string) (*transport.Response, error) {
	return &transport.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(body),
	}, nil
}

type awesome struct {
	Label       string
	SecondLabel string
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ProvideCredentials() *auth.Credentials {
	args := m.Called()
	creds, _ := args.Get(0).(*auth.Credentials)
	return creds
}

func (m *mockStore) SetCredentials(c auth.Credentials) {
	m.Called(c)
}

func (m *mockStore) FetchNewCredentials(ctx context.Context) (*auth.Credentials, error) {
	args := m.Called(ctx)
	creds, _ := args.Get(0).(*auth.Credentials)
	return creds, args.Error(1)
}
