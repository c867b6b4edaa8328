package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	defaultHandshakeTimeout = 45 * time.Second
	controlWriteTimeout     = 5 * time.Second
	defaultCloseGrace       = 3 * time.Second
)

// GorillaDialer opens sockets with gorilla/websocket.
type GorillaDialer struct {
	Dialer *websocket.Dialer
	// CloseGrace bounds how long Close waits for the peer's close frame
	// before dropping the connection.
	CloseGrace time.Duration
	Logger     *zap.Logger
}

// NewGorillaDialer returns a dialer using proxy settings from the environment.
func NewGorillaDialer(logger *zap.Logger) *GorillaDialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GorillaDialer{
		Dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: defaultHandshakeTimeout,
		},
		CloseGrace: defaultCloseGrace,
		Logger:     logger,
	}
}

// Open starts the handshake in the background and returns immediately. The
// handshake outlives ctx cancellation; use Close to abort it.
func (d *GorillaDialer) Open(ctx context.Context, url string, header http.Header, h SocketHandlers) (Socket, error) {
	if url == "" {
		return nil, errors.New("transport: empty socket url")
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	grace := d.CloseGrace
	if grace <= 0 {
		grace = defaultCloseGrace
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	dialCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s := &gorillaSocket{
		handlers: h,
		grace:    grace,
		logger:   logger,
		ready:    make(chan struct{}),
		closed:   make(chan struct{}),
		pongs:    make(chan struct{}, 1),
		cancel:   cancel,
	}
	go s.dial(dialCtx, dialer, url, header.Clone())
	return s, nil
}

type gorillaSocket struct {
	handlers SocketHandlers
	grace    time.Duration
	logger   *zap.Logger

	ready  chan struct{} // closed once the handshake finished either way
	closed chan struct{}
	pongs  chan struct{}
	cancel context.CancelFunc

	conn    *websocket.Conn
	dialErr error

	mu      sync.Mutex
	closing bool
	timer   *time.Timer

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (s *gorillaSocket) dial(ctx context.Context, dialer *websocket.Dialer, url string, header http.Header) {
	defer s.cancel()

	conn, resp, err := dialer.DialContext(ctx, url, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	s.mu.Lock()
	closing := s.closing
	switch {
	case err != nil:
		if resp != nil {
			err = fmt.Errorf("transport: handshake failed with status %d: %w", resp.StatusCode, err)
		} else {
			err = fmt.Errorf("transport: dial: %w", err)
		}
		s.dialErr = err
	case closing:
		_ = conn.Close()
		s.dialErr = ErrSocketClosed
	default:
		s.conn = conn
		conn.SetPongHandler(func(string) error {
			select {
			case s.pongs <- struct{}{}:
			default:
			}
			return nil
		})
	}
	s.mu.Unlock()
	close(s.ready)

	if s.dialErr != nil {
		reason := s.dialErr.Error()
		if closing {
			reason = "closed before open"
		}
		s.finish(CloseAbnormal, reason)
		return
	}
	if s.handlers.OnOpen != nil {
		s.handlers.OnOpen()
	}
}

func (s *gorillaSocket) await(ctx context.Context) error {
	select {
	case <-s.ready:
	case <-ctx.Done():
		return ctx.Err()
	}
	if s.dialErr != nil {
		if errors.Is(s.dialErr, ErrSocketClosed) {
			return s.dialErr
		}
		return fmt.Errorf("%w: %w", ErrSocketClosed, s.dialErr)
	}
	select {
	case <-s.closed:
		return ErrSocketClosed
	default:
		return nil
	}
}

func (s *gorillaSocket) Send(ctx context.Context, f Frame) error {
	if err := s.await(ctx); err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline, _ := ctx.Deadline()
	_ = s.conn.SetWriteDeadline(deadline)
	if err := s.conn.WriteMessage(int(f.Type), f.Data); err != nil {
		return fmt.Errorf("transport: write: %w", err)
	}
	return nil
}

func (s *gorillaSocket) Receive(ctx context.Context) (Frame, error) {
	if err := s.await(ctx); err != nil {
		return Frame{}, err
	}

	stop := context.AfterFunc(ctx, func() {
		_ = s.conn.SetReadDeadline(time.Now())
	})
	defer stop()

	mt, data, err := s.conn.ReadMessage()
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		code, reason := CloseAbnormal, err.Error()
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			code, reason = ce.Code, ce.Text
		}
		s.finish(code, reason)
		return Frame{}, err
	}
	return Frame{Type: MessageType(mt), Data: data}, nil
}

func (s *gorillaSocket) Ping(ctx context.Context) error {
	if err := s.await(ctx); err != nil {
		return err
	}

	select {
	case <-s.pongs:
	default:
	}

	deadline := time.Now().Add(controlWriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("transport: ping: %w", err)
	}

	select {
	case <-s.pongs:
		return nil
	case <-s.closed:
		return ErrSocketClosed
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ErrPongTimeout, ctx.Err())
	}
}

func (s *gorillaSocket) Close(code int, reason string) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	select {
	case <-s.ready:
	default:
		// Handshake still running; dial reports the close.
		s.mu.Unlock()
		s.cancel()
		return nil
	}
	if s.dialErr != nil {
		s.mu.Unlock()
		return nil
	}
	s.timer = time.AfterFunc(s.grace, func() {
		s.finish(code, reason)
	})
	s.mu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(controlWriteTimeout)); err != nil {
		s.logger.Debug("Close frame not written", zap.Error(err))
		s.finish(code, reason)
	}
	return nil
}

// finish tears down the connection and reports OnClose exactly once.
func (s *gorillaSocket) finish(code int, reason string) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()

		close(s.closed)
		if s.conn != nil {
			_ = s.conn.Close()
		}
		if s.handlers.OnClose != nil {
			s.handlers.OnClose(code, reason)
		}
	})
}
