// Package id generates prefixed ULIDs that tie log lines together.
//
//   - req_*  one logical dispatch, shared by the first attempt and its retry
//   - conn_* one socket handle opened by a WebSocket session
package id

import (
	"crypto/rand"
	"errors"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// RequestID identifies one logical dispatch.
type RequestID string

// ConnectionID identifies one socket handle.
type ConnectionID string

const (
	RequestPrefix    = "req"
	ConnectionPrefix = "conn"
)

// ErrMalformed is returned by Parse for strings that are not prefix_ULID.
var ErrMalformed = errors.New("malformed identifier")

func (id RequestID) String() string    { return string(id) }
func (id ConnectionID) String() string { return string(id) }

// Generator hands out identifiers that are monotonic within a millisecond.
type Generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

var (
	shared     *Generator
	sharedOnce sync.Once
)

// Default returns the process-wide generator.
func Default() *Generator {
	sharedOnce.Do(func() { shared = NewGenerator(rand.Reader) })
	return shared
}

// NewGenerator returns a generator reading randomness from r.
func NewGenerator(r io.Reader) *Generator {
	return &Generator{entropy: ulid.Monotonic(r, 0), now: time.Now}
}

func (g *Generator) next(prefix string) string {
	g.mu.Lock()
	u := ulid.MustNew(ulid.Timestamp(g.now()), g.entropy)
	g.mu.Unlock()
	return prefix + "_" + u.String()
}

// Request returns a fresh dispatch identifier.
func (g *Generator) Request() RequestID { return RequestID(g.next(RequestPrefix)) }

// Connection returns a fresh socket identifier.
func (g *Generator) Connection() ConnectionID { return ConnectionID(g.next(ConnectionPrefix)) }

// NewRequestID uses the default generator.
func NewRequestID() RequestID { return Default().Request() }

// NewConnectionID uses the default generator.
func NewConnectionID() ConnectionID { return Default().Connection() }

// Parse splits s into its prefix and creation time.
func Parse(s string) (prefix string, created time.Time, err error) {
	prefix, raw, ok := strings.Cut(s, "_")
	if !ok || prefix == "" {
		return "", time.Time{}, ErrMalformed
	}
	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return "", time.Time{}, errors.Join(ErrMalformed, err)
	}
	return prefix, ulid.Time(u.Time()), nil
}
