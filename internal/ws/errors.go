package ws

import (
	"errors"
	"fmt"
)

var (
	ErrNotConnected    = errors.New("ws: not connected")
	ErrNoPriorRequest  = errors.New("ws: no prior request to reconnect to")
	ErrReconnectFailed = errors.New("ws: reconnect failed")
)

// SendFailedError wraps a transport error from writing a frame. Sends are
// never retried.
type SendFailedError struct {
	Err error
}

func (e *SendFailedError) Error() string {
	return fmt.Sprintf("ws: send failed: %v", e.Err)
}

func (e *SendFailedError) Unwrap() error { return e.Err }

// EncodeError is returned when a message cannot be serialized.
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("ws: encode message: %v", e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
