package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/netkit/internal/auth"
	"github.com/GriffinCanCode/netkit/internal/client"
	"github.com/GriffinCanCode/netkit/internal/transport"
)

func echoRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	router := gin.New()
	router.GET("/socket", func(c *gin.Context) {
		if c.GetHeader("Authorization") != "Bearer 123" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
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
	})
	return router
}

func TestFromRequest(t *testing.T) {
	store := auth.NewMemoryStore(&auth.Credentials{AccessToken: "123", TokenType: "bearer"}, nil)
	c, err := client.New(client.Config{BaseURL: "https://api.example.test/v1", Store: store})
	require.NoError(t, err)

	target, err := FromRequest(c.Get("socket").WithHeader("X-Trace", "abc"))
	require.NoError(t, err)
	assert.Equal(t, "wss://api.example.test/v1/socket", target.URL)
	assert.Equal(t, "Bearer 123", target.Header.Get("Authorization"))
	assert.Equal(t, "abc", target.Header.Get("X-Trace"))
	assert.Empty(t, target.Header.Get("Content-Type"))

	_, err = FromRequest(c.Get("ftp://elsewhere/socket"))
	assert.ErrorIs(t, err, client.ErrInvalidURL)
}

func TestSessionAgainstEchoServer(t *testing.T) {
	server := httptest.NewServer(echoRouter())
	defer server.Close()

	store := auth.NewMemoryStore(&auth.Credentials{AccessToken: "123", TokenType: "bearer"}, nil)
	c, err := client.New(client.Config{BaseURL: server.URL, Store: store})
	require.NoError(t, err)
	target, err := FromRequest(c.Get("/socket"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.PingInterval = 20 * time.Millisecond
	s := NewSession(transport.NewGorillaDialer(nil), cfg)
	defer s.Close()
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), target))
	waitFor(t, sub, StateConnected)

	require.NoError(t, s.Send(context.Background(), map[string]any{"kind": "hello"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	var echoed Event
	for {
		e, err := sub.Next(ctx)
		require.NoError(t, err)
		if e.Kind == EventMessage {
			echoed = e
			break
		}
	}
	assert.Equal(t, transport.TextMessage, echoed.Frame.Type)
	assert.JSONEq(t, `{"kind":"hello"}`, string(echoed.Frame.Data))

	// Let a few pings go through the live receive loop.
	time.Sleep(70 * time.Millisecond)
	assert.Equal(t, StateConnected, s.State())

	require.NoError(t, s.Disconnect())
	waitFor(t, sub, StateDisconnected)

	require.NoError(t, s.Reconnect(context.Background()))
	assert.Equal(t, StateConnected, s.State())
}

func TestSessionRejectedHandshake(t *testing.T) {
	server := httptest.NewServer(echoRouter())
	defer server.Close()

	core, logs := observer.New(zapcore.DebugLevel)
	cfg := DefaultConfig()
	cfg.Logger = zap.New(core)
	s := NewSession(transport.NewGorillaDialer(nil), cfg)
	defer s.Close()
	sub := s.Subscribe()
	defer sub.Close()

	require.NoError(t, s.Connect(context.Background(), Target{URL: "ws" + server.URL[len("http"):] + "/socket"}))
	waitFor(t, sub, StateDisconnected)

	// The refused handshake ends the receive loop quietly.
	assert.Never(t, func() bool {
		return logs.FilterMessage("WebSocket receive failed").Len() > 0
	}, 200*time.Millisecond, 10*time.Millisecond)

	err := s.Reconnect(context.Background())
	assert.ErrorIs(t, err, ErrReconnectFailed)
}
