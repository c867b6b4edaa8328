package ws

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GriffinCanCode/netkit/internal/client"
	"github.com/GriffinCanCode/netkit/internal/codec"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/logging"
	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/shared/id"
	"github.com/GriffinCanCode/netkit/internal/transport"
	"go.uber.org/zap"
)

const DefaultReconnectTimeout = 10 * time.Second

// Config configures a Session. A zero PingInterval disables keep-alive.
type Config struct {
	PingInterval time.Duration
	// PongTimeout bounds each ping. Defaults to PingInterval.
	PongTimeout      time.Duration
	ReconnectTimeout time.Duration
	// Verbose logs every frame at debug level.
	Verbose bool

	EncodeOptions []codec.Option
	Logger        logging.FieldLogger
	Metrics       *monitoring.Metrics
}

func DefaultConfig() Config {
	return Config{
		ReconnectTimeout: DefaultReconnectTimeout,
		EncodeOptions:    client.DefaultEncodeOptions(),
	}
}

// Session owns at most one socket at a time and drives it through
// disconnected, connecting, connected and disconnecting. Every transition is
// published on Events before its side effects run.
type Session struct {
	dialer  transport.Dialer
	cfg     Config
	codec   *codec.Codec
	logger  logging.FieldLogger
	metrics *monitoring.Metrics
	events  *Broadcaster

	mu      sync.Mutex
	state   State
	current *connection
	target  *Target
}

// connection is the per-socket bookkeeping. Socket callbacks carry their
// connection so that late callbacks from a replaced socket are ignored.
type connection struct {
	id       id.ConnectionID
	socket   transport.Socket
	attached chan struct{}

	opened     bool
	closeAsked bool
	stopPing   context.CancelFunc
	stopRecv   context.CancelFunc
}

func NewSession(dialer transport.Dialer, cfg Config) *Session {
	if cfg.ReconnectTimeout <= 0 {
		cfg.ReconnectTimeout = DefaultReconnectTimeout
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = cfg.PingInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Session{
		dialer:  dialer,
		cfg:     cfg,
		codec:   codec.New(cfg.EncodeOptions...),
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		events:  NewBroadcaster(),
	}
}

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events is the session's event stream.
func (s *Session) Events() *Broadcaster { return s.events }

// Subscribe is shorthand for Events().Subscribe().
func (s *Session) Subscribe() *Subscription { return s.events.Subscribe() }

// setState must be called with mu held.
func (s *Session) setState(st State) {
	s.state = st
	s.events.Publish(stateEvent(st))
	s.metrics.RecordWSTransition(st.String())
}

// Connect opens a socket to t. It is a no-op unless the session is
// disconnected. Connect returns once the socket is opening; watch Events
// for the connected state.
func (s *Session) Connect(ctx context.Context, t Target) error {
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	remembered := t.clone()
	s.target = &remembered
	c := &connection{id: id.NewConnectionID(), attached: make(chan struct{})}
	s.current = c
	s.setState(StateConnecting)
	s.mu.Unlock()

	s.logger.Info("Connecting WebSocket",
		zap.String("conn_id", c.id.String()),
		zap.String("url", t.URL))

	sock, err := s.dialer.Open(ctx, t.URL, t.Header.Clone(), transport.SocketHandlers{
		OnOpen:  func() { s.handleOpen(c) },
		OnClose: func(code int, reason string) { s.handleClose(c, code, reason) },
	})
	if err != nil {
		s.mu.Lock()
		if s.current == c {
			s.current = nil
			s.setState(StateDisconnected)
			if c.stopPing != nil {
				c.stopPing()
			}
		}
		s.mu.Unlock()
		s.logger.Error("Failed to open WebSocket",
			zap.String("conn_id", c.id.String()),
			zap.Error(err))
		return fmt.Errorf("ws: open socket: %w", err)
	}

	recvCtx, stopRecv := context.WithCancel(context.Background())
	s.mu.Lock()
	c.socket = sock
	c.stopRecv = stopRecv
	close(c.attached)
	if s.current != c {
		// The socket already reported its close.
		s.mu.Unlock()
		stopRecv()
		return nil
	}
	closeAsked := c.closeAsked
	s.mu.Unlock()

	go s.receive(recvCtx, c)

	if closeAsked {
		// Disconnect ran while the dialer was still opening.
		s.closeSocket(c)
	}
	return nil
}

func (s *Session) handleOpen(c *connection) {
	s.mu.Lock()
	if s.current != c || s.state != StateConnecting {
		s.mu.Unlock()
		return
	}
	c.opened = true
	s.setState(StateConnected)
	s.metrics.IncWSConnections()
	if s.cfg.PingInterval > 0 {
		pingCtx, stop := context.WithCancel(context.Background())
		c.stopPing = stop
		go s.keepAlive(pingCtx, c)
	}
	s.mu.Unlock()

	s.logger.Info("WebSocket connected", zap.String("conn_id", c.id.String()))
}

func (s *Session) handleClose(c *connection, code int, reason string) {
	s.mu.Lock()
	if s.current != c {
		s.mu.Unlock()
		return
	}
	s.current = nil
	s.setState(StateDisconnected)
	if c.stopPing != nil {
		c.stopPing()
	}
	if c.stopRecv != nil {
		c.stopRecv()
	}
	if c.opened {
		s.metrics.DecWSConnections()
	}
	s.mu.Unlock()

	s.logger.Info("WebSocket disconnected",
		zap.String("conn_id", c.id.String()),
		zap.Int("code", code),
		zap.String("reason", reason))
}

// Disconnect starts a graceful close. The disconnected state follows once
// the transport confirms the close. It is a no-op when already disconnected
// or disconnecting.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.state == StateDisconnected || s.state == StateDisconnecting {
		s.mu.Unlock()
		return nil
	}
	c := s.current
	s.setState(StateDisconnecting)
	if c.stopPing != nil {
		c.stopPing()
	}
	attached := c.socket != nil
	if !attached {
		c.closeAsked = true
	}
	s.mu.Unlock()

	if !attached {
		return nil
	}
	return s.closeSocket(c)
}

func (s *Session) closeSocket(c *connection) error {
	if err := c.socket.Close(transport.CloseNormal, ""); err != nil {
		s.logger.Warn("WebSocket close failed",
			zap.String("conn_id", c.id.String()),
			zap.Error(err))
		return fmt.Errorf("ws: close socket: %w", err)
	}
	return nil
}

// Reconnect connects again to the last target and waits up to the
// configured timeout for the connected state. It is a no-op unless the
// session is disconnected. On failure the socket opened by the attempt is
// left as is; call Disconnect to release it.
func (s *Session) Reconnect(ctx context.Context) error {
	// Subscribe before inspecting the state so no transition is missed.
	sub := s.events.Subscribe()
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		sub.Close()
		return nil
	}
	if s.target == nil {
		s.mu.Unlock()
		sub.Close()
		return ErrNoPriorRequest
	}
	t := s.target.clone()
	s.mu.Unlock()

	start := time.Now()
	if err := s.Connect(ctx, t); err != nil {
		sub.Close()
		s.metrics.RecordWSReconnect("failed")
		return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
	}

	_, err := Await(ctx, sub, AnyState(StateConnected, StateDisconnected), s.cfg.ReconnectTimeout)
	if err != nil {
		s.metrics.RecordWSReconnect("failed")
		s.logger.Warn("WebSocket reconnect failed",
			zap.Duration("waited", time.Since(start)),
			zap.Error(err))
		return fmt.Errorf("%w: %w", ErrReconnectFailed, err)
	}
	if st := s.State(); st != StateConnected {
		s.metrics.RecordWSReconnect("failed")
		s.logger.Warn("WebSocket reconnect failed", zap.Stringer("state", st))
		return fmt.Errorf("%w: settled in state %s", ErrReconnectFailed, st)
	}

	s.metrics.RecordWSReconnect("success")
	s.logger.Info("WebSocket reconnected", zap.Duration("duration", time.Since(start)))
	return nil
}

// Send serializes msg with the session codec and writes it as a text frame.
func (s *Session) Send(ctx context.Context, msg any) error {
	c, err := s.connected()
	if err != nil {
		return err
	}
	data, err := s.codec.Marshal(msg)
	if err != nil {
		return &EncodeError{Err: err}
	}
	return s.write(ctx, c, transport.Frame{Type: transport.TextMessage, Data: data})
}

// SendFrame writes f unchanged.
func (s *Session) SendFrame(ctx context.Context, f transport.Frame) error {
	c, err := s.connected()
	if err != nil {
		return err
	}
	return s.write(ctx, c, f)
}

func (s *Session) connected() (*connection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateConnected || s.current == nil || s.current.socket == nil {
		return nil, ErrNotConnected
	}
	return s.current, nil
}

func (s *Session) write(ctx context.Context, c *connection, f transport.Frame) error {
	if err := c.socket.Send(ctx, f); err != nil {
		s.logger.Error("WebSocket send failed",
			zap.String("conn_id", c.id.String()),
			zap.Error(err))
		return &SendFailedError{Err: err}
	}
	s.metrics.RecordWSFrame("out", f.Type.String())
	if s.cfg.Verbose {
		s.logger.Debug("WebSocket frame sent",
			zap.String("conn_id", c.id.String()),
			zap.Stringer("type", f.Type),
			zap.Int("size", len(f.Data)))
	}
	return nil
}

// receive republishes incoming frames until the socket fails. It does not
// reconnect; the close callback moves the session to disconnected.
func (s *Session) receive(ctx context.Context, c *connection) {
	for {
		f, err := c.socket.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, transport.ErrSocketClosed) {
				s.logger.Debug("WebSocket receive loop stopped", zap.String("conn_id", c.id.String()))
			} else {
				s.logger.Warn("WebSocket receive failed",
					zap.String("conn_id", c.id.String()),
					zap.Error(err))
			}
			return
		}
		s.metrics.RecordWSFrame("in", f.Type.String())
		if s.cfg.Verbose {
			s.logger.Debug("WebSocket frame received",
				zap.String("conn_id", c.id.String()),
				zap.Stringer("type", f.Type),
				zap.Int("size", len(f.Data)))
		}
		s.events.Publish(messageEvent(f))
	}
}

// keepAlive pings every interval. A missed pong is logged and counted but
// never closes the connection.
func (s *Session) keepAlive(ctx context.Context, c *connection) {
	select {
	case <-c.attached:
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return
		}

		pingCtx, cancel := context.WithTimeout(ctx, s.cfg.PongTimeout)
		start := time.Now()
		err := c.socket.Ping(pingCtx)
		cancel()
		switch {
		case ctx.Err() != nil:
			return
		case err != nil:
			s.metrics.IncWSPingFailures()
			s.logger.Warn("WebSocket ping failed",
				zap.String("conn_id", c.id.String()),
				zap.Error(err))
		case s.cfg.Verbose:
			s.logger.Debug("WebSocket pong received",
				zap.String("conn_id", c.id.String()),
				zap.Duration("rtt", time.Since(start)))
		}
	}
}

// Close disconnects and ends every subscription.
func (s *Session) Close() error {
	err := s.Disconnect()
	s.events.Close()
	return err
}
