package ws

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/netkit/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

var testTarget = Target{
	URL:    "ws://example.test/socket",
	Header: http.Header{"Authorization": {"Bearer 123"}},
}

func newTestSession(t *testing.T, d *fakeDialer, cfg Config) *Session {
	t.Helper()
	s := NewSession(d, cfg)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

// waitFor consumes sub up to the next change to one of states. Unlike
// Await it keeps the subscription open.
func waitFor(t *testing.T, sub *Subscription, states ...State) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	match := AnyState(states...)
	for {
		e, err := sub.Next(ctx)
		require.NoError(t, err)
		if match([]Event{e}) {
			return
		}
	}
}

func stateHistory(t *testing.T, sub *Subscription, n int) []State {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	var states []State
	for len(states) < n {
		e, err := sub.Next(ctx)
		require.NoError(t, err)
		if e.Kind == EventStateChanged {
			states = append(states, e.State)
		}
	}
	return states
}

func TestSessionLifecycleEvents(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()

	assert.Equal(t, StateDisconnected, s.State())
	require.NoError(t, s.Connect(context.Background(), testTarget))
	require.Eventually(t, func() bool { return s.State() == StateConnected }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Disconnect())
	require.Eventually(t, func() bool { return s.State() == StateDisconnected }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []State{StateConnecting, StateConnected, StateDisconnecting, StateDisconnected},
		stateHistory(t, sub, 4))
	assert.Equal(t, []int{transport.CloseNormal}, d.socket(0).closes())
	assert.Equal(t, "Bearer 123", d.headers[0].Get("Authorization"))
}

func TestSessionConnectIsNoOpUnlessDisconnected(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSession(t, d, DefaultConfig())

	require.NoError(t, s.Connect(context.Background(), testTarget))
	assert.Equal(t, StateConnecting, s.State())
	require.NoError(t, s.Connect(context.Background(), testTarget))

	d.socket(0).open()
	assert.Equal(t, StateConnected, s.State())
	require.NoError(t, s.Connect(context.Background(), testTarget))

	assert.Equal(t, 1, d.opened())
}

func TestSessionDisconnectIsNoOpWhenIdle(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Disconnect())
	assert.Equal(t, StateDisconnected, s.State())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := sub.Next(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "no event for a no-op")
}

func TestSessionDisconnectWhileDisconnecting(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	sock := d.socket(0)
	s.mu.Lock()
	s.setState(StateDisconnecting)
	s.mu.Unlock()

	require.NoError(t, s.Disconnect())
	assert.Empty(t, sock.closes(), "no second close request")
}

func TestSessionDisconnectWhileConnecting(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), testTarget))
	require.NoError(t, s.Disconnect())
	waitFor(t, sub, StateDisconnected)

	// Late open confirmation from the closed socket is ignored.
	d.socket(0).open()
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSessionDisconnectDuringDial(t *testing.T) {
	gate := make(chan struct{})
	d := &fakeDialer{gate: gate}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()

	connected := make(chan error, 1)
	go func() { connected <- s.Connect(context.Background(), testTarget) }()
	waitFor(t, sub, StateConnecting)

	require.NoError(t, s.Disconnect())
	assert.Equal(t, StateDisconnecting, s.State())
	close(gate)

	require.NoError(t, <-connected)
	waitFor(t, sub, StateDisconnected)
	assert.Equal(t, []int{transport.CloseNormal}, d.socket(0).closes())
}

func TestSessionConnectOpenError(t *testing.T) {
	d := &fakeDialer{openErr: errBoom}
	s := newTestSession(t, d, DefaultConfig())

	err := s.Connect(context.Background(), testTarget)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSessionSendRequiresConnected(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSession(t, d, DefaultConfig())

	err := s.Send(context.Background(), map[string]string{"a": "b"})
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.Equal(t, 0, d.opened(), "transport never touched")

	require.NoError(t, s.Connect(context.Background(), testTarget))
	err = s.SendFrame(context.Background(), transport.Frame{Type: transport.TextMessage, Data: []byte("x")})
	assert.ErrorIs(t, err, ErrNotConnected, "connecting is not connected")
	assert.Empty(t, d.socket(0).frames())
}

func TestSessionSend(t *testing.T) {
	type greeting struct {
		DisplayName string
		Count       int
	}

	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()
	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	require.NoError(t, s.Send(context.Background(), greeting{DisplayName: "ada", Count: 2}))
	require.NoError(t, s.SendFrame(context.Background(), transport.Frame{Type: transport.BinaryMessage, Data: []byte{1, 2}}))

	frames := d.socket(0).frames()
	require.Len(t, frames, 2)
	assert.Equal(t, transport.TextMessage, frames[0].Type)
	assert.JSONEq(t, `{"display_name":"ada","count":2}`, string(frames[0].Data))
	assert.Equal(t, transport.BinaryMessage, frames[1].Type)
}

func TestSessionSendFailure(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()
	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	d.socket(0).sendErr = errBoom
	err := s.Send(context.Background(), "hello")

	var sendErr *SendFailedError
	require.ErrorAs(t, err, &sendErr)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, StateConnected, s.State(), "send failure does not drop the connection")
}

func TestSessionSendEncodeError(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()
	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	var encErr *EncodeError
	assert.ErrorAs(t, s.Send(context.Background(), make(chan int)), &encErr)
	assert.Empty(t, d.socket(0).frames())
}

func TestSessionReceivePublishesMessages(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, Config{Verbose: true})
	sub := s.Subscribe()
	defer sub.Close()
	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	msgs := s.Subscribe()
	defer msgs.Close()
	d.socket(0).incoming <- transport.Frame{Type: transport.TextMessage, Data: []byte(`{"n":1}`)}
	d.socket(0).incoming <- transport.Frame{Type: transport.TextMessage, Data: []byte(`{"n":2}`)}

	var got []string
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	for len(got) < 2 {
		e, err := msgs.Next(ctx)
		require.NoError(t, err)
		if e.Kind == EventMessage {
			got = append(got, string(e.Frame.Data))
		}
	}
	assert.Equal(t, []string{`{"n":1}`, `{"n":2}`}, got)
}

func TestSessionRemoteCloseDisconnects(t *testing.T) {
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, DefaultConfig())
	sub := s.Subscribe()
	defer sub.Close()
	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)

	d.socket(0).remoteClose(transport.CloseGoingAway, "bye")
	waitFor(t, sub, StateDisconnected)
	assert.ErrorIs(t, s.Send(context.Background(), "x"), ErrNotConnected)
}

func TestSessionReconnect(t *testing.T) {
	t.Run("no prior request", func(t *testing.T) {
		s := newTestSession(t, &fakeDialer{autoOpen: true}, DefaultConfig())
		assert.ErrorIs(t, s.Reconnect(context.Background()), ErrNoPriorRequest)
	})

	t.Run("no-op while connected", func(t *testing.T) {
		d := &fakeDialer{autoOpen: true}
		s := newTestSession(t, d, DefaultConfig())
		sub := s.Subscribe()
		defer sub.Close()
		require.NoError(t, s.Connect(context.Background(), testTarget))
		waitFor(t, sub, StateConnected)

		require.NoError(t, s.Reconnect(context.Background()))
		assert.Equal(t, 1, d.opened())
	})

	t.Run("reuses the last target", func(t *testing.T) {
		metrics := monitoring.NewMetrics()
		d := &fakeDialer{autoOpen: true}
		cfg := DefaultConfig()
		cfg.Metrics = metrics
		s := newTestSession(t, d, cfg)
		sub := s.Subscribe()
		defer sub.Close()

		require.NoError(t, s.Connect(context.Background(), testTarget))
		waitFor(t, sub, StateConnected)
		d.socket(0).remoteClose(transport.CloseAbnormal, "")
		waitFor(t, sub, StateDisconnected)

		require.NoError(t, s.Reconnect(context.Background()))
		assert.Equal(t, StateConnected, s.State())
		assert.Equal(t, 2, d.opened())
		assert.Equal(t, testTarget.URL, d.urls[1])
		assert.Equal(t, "Bearer 123", d.headers[1].Get("Authorization"))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSReconnects.WithLabelValues("success")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))
	})

	t.Run("times out", func(t *testing.T) {
		d := &fakeDialer{}
		cfg := DefaultConfig()
		cfg.ReconnectTimeout = 30 * time.Millisecond
		s := newTestSession(t, d, cfg)

		require.NoError(t, s.Connect(context.Background(), testTarget))
		d.socket(0).remoteClose(transport.CloseAbnormal, "")
		require.Equal(t, StateDisconnected, s.State())

		start := time.Now()
		err := s.Reconnect(context.Background())
		assert.ErrorIs(t, err, ErrReconnectFailed)
		assert.ErrorIs(t, err, ErrWaitTimeout)
		assert.Less(t, time.Since(start), time.Second)
		assert.Equal(t, StateConnecting, s.State(), "the pending attempt is left running")
	})

	t.Run("settles disconnected", func(t *testing.T) {
		d := &fakeDialer{autoOpen: true}
		s := newTestSession(t, d, DefaultConfig())
		sub := s.Subscribe()
		defer sub.Close()
		require.NoError(t, s.Connect(context.Background(), testTarget))
		waitFor(t, sub, StateConnected)
		d.socket(0).remoteClose(transport.CloseAbnormal, "")
		waitFor(t, sub, StateDisconnected)

		d.autoOpen = false
		d.rejectHandshake = true
		err := s.Reconnect(context.Background())
		assert.ErrorIs(t, err, ErrReconnectFailed)
		assert.Equal(t, StateDisconnected, s.State())
	})

	t.Run("open error", func(t *testing.T) {
		d := &fakeDialer{autoOpen: true}
		s := newTestSession(t, d, DefaultConfig())
		sub := s.Subscribe()
		defer sub.Close()
		require.NoError(t, s.Connect(context.Background(), testTarget))
		waitFor(t, sub, StateConnected)
		d.socket(0).remoteClose(transport.CloseAbnormal, "")
		waitFor(t, sub, StateDisconnected)

		d.openErr = errBoom
		err := s.Reconnect(context.Background())
		assert.ErrorIs(t, err, ErrReconnectFailed)
		assert.ErrorIs(t, err, errBoom)
	})
}

func TestSessionKeepAlive(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := monitoring.NewMetrics()
	d := &fakeDialer{autoOpen: true}
	s := newTestSession(t, d, Config{
		PingInterval: 5 * time.Millisecond,
		Logger:       zap.New(core),
		Metrics:      metrics,
	})
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)
	sock := d.socket(0)
	require.Eventually(t, func() bool { return sock.pings.Load() >= 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Disconnect())
	waitFor(t, sub, StateDisconnected)
	stopped := sock.pings.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, sock.pings.Load(), "pings stop on disconnect")
	assert.Zero(t, logs.FilterMessage("WebSocket ping failed").Len())
	assert.Zero(t, testutil.ToFloat64(metrics.WSPingFailures))
}

func TestSessionMissedPongIsNotFatal(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	metrics := monitoring.NewMetrics()
	d := &fakeDialer{}
	s := newTestSession(t, d, Config{
		PingInterval: 5 * time.Millisecond,
		Logger:       zap.New(core),
		Metrics:      metrics,
	})

	require.NoError(t, s.Connect(context.Background(), testTarget))
	sock := d.socket(0)
	sock.pingErr = transport.ErrPongTimeout
	sock.open()

	require.Eventually(t, func() bool {
		return logs.FilterMessage("WebSocket ping failed").Len() >= 2
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, StateConnected, s.State())
	assert.GreaterOrEqual(t, testutil.ToFloat64(metrics.WSPingFailures), 2.0)
}

func TestSessionTransitionMetrics(t *testing.T) {
	metrics := monitoring.NewMetrics()
	d := &fakeDialer{autoOpen: true}
	cfg := DefaultConfig()
	cfg.Metrics = metrics
	s := newTestSession(t, d, cfg)
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), testTarget))
	waitFor(t, sub, StateConnected)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSConnections))

	require.NoError(t, s.Send(context.Background(), "x"))
	require.NoError(t, s.Disconnect())
	waitFor(t, sub, StateDisconnected)

	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.WSConnections))
	for _, st := range []string{"connecting", "connected", "disconnecting", "disconnected"} {
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSTransitions.WithLabelValues(st)), st)
	}
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.WSFrames.WithLabelValues("out", "text")))
}
