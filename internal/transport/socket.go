package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"
)

// MessageType is the WebSocket frame type.
type MessageType int

const (
	TextMessage   MessageType = websocket.TextMessage
	BinaryMessage MessageType = websocket.BinaryMessage
)

func (m MessageType) String() string {
	switch m {
	case TextMessage:
		return "text"
	case BinaryMessage:
		return "binary"
	default:
		return "unknown"
	}
}

// Frame is one data message.
type Frame struct {
	Type MessageType
	Data []byte
}

// Close codes used by the session.
const (
	CloseNormal    = websocket.CloseNormalClosure
	CloseGoingAway = websocket.CloseGoingAway
	CloseAbnormal  = websocket.CloseAbnormalClosure
)

var (
	ErrSocketClosed = errors.New("transport: socket closed")
	ErrPongTimeout  = errors.New("transport: no pong received")
)

// SocketHandlers receive the lifecycle callbacks of a socket. OnOpen fires at
// most once, after the handshake succeeds. OnClose fires exactly once, also
// when the handshake fails.
type SocketHandlers struct {
	OnOpen  func()
	OnClose func(code int, reason string)
}

// Socket is one WebSocket connection. Open returns before the handshake
// completes; Send, Receive and Ping wait for it.
type Socket interface {
	Send(ctx context.Context, f Frame) error
	Receive(ctx context.Context) (Frame, error)
	// Ping writes a ping control frame and waits for the matching pong.
	// A pong is only observed while another goroutine is inside Receive.
	Ping(ctx context.Context) error
	// Close starts a graceful close. The handshake completes asynchronously
	// and is reported through OnClose.
	Close(code int, reason string) error
}

// Dialer opens sockets.
type Dialer interface {
	Open(ctx context.Context, url string, header http.Header, h SocketHandlers) (Socket, error)
}
