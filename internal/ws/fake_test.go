package ws

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/GriffinCanCode/netkit/internal/transport"
)

// fakeDialer hands out fakeSockets. With autoOpen the open confirmation
// arrives asynchronously right after Open returns.
type fakeDialer struct {
	autoOpen bool
	// rejectHandshake makes every socket report a close instead of opening.
	rejectHandshake bool
	openErr         error
	// gate, when set, holds Open until it is closed.
	gate chan struct{}

	mu      sync.Mutex
	sockets []*fakeSocket
	urls    []string
	headers []http.Header
}

func (d *fakeDialer) Open(_ context.Context, url string, header http.Header, h transport.SocketHandlers) (transport.Socket, error) {
	if d.gate != nil {
		<-d.gate
	}
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeSocket{handlers: h, incoming: make(chan transport.Frame, 16), closed: make(chan struct{})}
	d.mu.Lock()
	d.sockets = append(d.sockets, s)
	d.urls = append(d.urls, url)
	d.headers = append(d.headers, header)
	d.mu.Unlock()

	switch {
	case d.rejectHandshake:
		go s.remoteClose(transport.CloseAbnormal, "handshake failed")
	case d.autoOpen:
		go s.open()
	}
	return s, nil
}

func (d *fakeDialer) opened() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sockets)
}

func (d *fakeDialer) socket(i int) *fakeSocket {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sockets[i]
}

type fakeSocket struct {
	handlers transport.SocketHandlers
	incoming chan transport.Frame
	closed   chan struct{}
	once     sync.Once

	sendErr error
	pingErr error
	pings   atomic.Int32

	mu         sync.Mutex
	sent       []transport.Frame
	closeCodes []int
}

func (s *fakeSocket) open() { s.handlers.OnOpen() }

func (s *fakeSocket) remoteClose(code int, reason string) {
	s.once.Do(func() {
		close(s.closed)
		s.handlers.OnClose(code, reason)
	})
}

func (s *fakeSocket) Send(_ context.Context, f transport.Frame) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, f)
	return nil
}

func (s *fakeSocket) Receive(ctx context.Context) (transport.Frame, error) {
	select {
	case f := <-s.incoming:
		return f, nil
	case <-s.closed:
		return transport.Frame{}, transport.ErrSocketClosed
	case <-ctx.Done():
		return transport.Frame{}, ctx.Err()
	}
}

func (s *fakeSocket) Ping(context.Context) error {
	s.pings.Add(1)
	return s.pingErr
}

// Close confirms asynchronously, like a real close handshake.
func (s *fakeSocket) Close(code int, reason string) error {
	s.mu.Lock()
	s.closeCodes = append(s.closeCodes, code)
	s.mu.Unlock()
	go s.remoteClose(code, reason)
	return nil
}

func (s *fakeSocket) frames() []transport.Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]transport.Frame(nil), s.sent...)
}

func (s *fakeSocket) closes() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.closeCodes...)
}

var errBoom = errors.New("boom")
