package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer 123" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, data); err != nil {
				return
			}
		}
	}))
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

type recorder struct {
	opened chan struct{}
	closed chan int
	closes atomic.Int32
}

func newRecorder() *recorder {
	return &recorder{opened: make(chan struct{}, 1), closed: make(chan int, 2)}
}

func (r *recorder) handlers() SocketHandlers {
	return SocketHandlers{
		OnOpen: func() { r.opened <- struct{}{} },
		OnClose: func(code int, reason string) {
			r.closes.Add(1)
			r.closed <- code
		},
	}
}

func authHeader() http.Header {
	return http.Header{"Authorization": {"Bearer 123"}}
}

func TestGorillaSocketEcho(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	rec := newRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := NewGorillaDialer(nil).Open(ctx, wsURL(server), authHeader(), rec.handlers())
	require.NoError(t, err)

	select {
	case <-rec.opened:
	case <-ctx.Done():
		t.Fatal("socket never opened")
	}

	require.NoError(t, sock.Send(ctx, Frame{Type: TextMessage, Data: []byte(`{"hello":"world"}`)}))
	frame, err := sock.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, TextMessage, frame.Type)
	assert.Equal(t, `{"hello":"world"}`, string(frame.Data))

	require.NoError(t, sock.Send(ctx, Frame{Type: BinaryMessage, Data: []byte{1, 2, 3}}))
	frame, err = sock.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, BinaryMessage, frame.Type)
	assert.Equal(t, []byte{1, 2, 3}, frame.Data)
}

func TestGorillaSocketPingAndClose(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	rec := newRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := NewGorillaDialer(nil).Open(ctx, wsURL(server), authHeader(), rec.handlers())
	require.NoError(t, err)
	<-rec.opened

	readErr := make(chan error, 1)
	go func() {
		for {
			if _, err := sock.Receive(ctx); err != nil {
				readErr <- err
				return
			}
		}
	}()

	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	defer pingCancel()
	require.NoError(t, sock.Ping(pingCtx))

	require.NoError(t, sock.Close(CloseGoingAway, "bye"))
	require.NoError(t, sock.Close(CloseGoingAway, "bye"))

	select {
	case code := <-rec.closed:
		assert.Equal(t, CloseGoingAway, code)
	case <-ctx.Done():
		t.Fatal("close never reported")
	}
	require.Error(t, <-readErr)

	assert.ErrorIs(t, sock.Send(ctx, Frame{Type: TextMessage, Data: []byte("late")}), ErrSocketClosed)
	assert.Equal(t, int32(1), rec.closes.Load())
}

func TestGorillaSocketHandshakeFailure(t *testing.T) {
	server := echoServer(t)
	defer server.Close()

	rec := newRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sock, err := NewGorillaDialer(nil).Open(ctx, wsURL(server), nil, rec.handlers())
	require.NoError(t, err)

	select {
	case code := <-rec.closed:
		assert.Equal(t, CloseAbnormal, code)
	case <-ctx.Done():
		t.Fatal("failure never reported")
	}
	assert.Empty(t, rec.opened)

	_, err = sock.Receive(ctx)
	assert.ErrorContains(t, err, "401")
	assert.ErrorIs(t, err, ErrSocketClosed)
}

func TestGorillaDialerRejectsEmptyURL(t *testing.T) {
	_, err := NewGorillaDialer(nil).Open(context.Background(), "", nil, SocketHandlers{})
	assert.Error(t, err)
}
