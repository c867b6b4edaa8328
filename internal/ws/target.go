package ws

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/GriffinCanCode/netkit/internal/client"
)

// Target is the endpoint a Session connects to. Authentication travels in
// Header and is fixed for the lifetime of the connection.
type Target struct {
	URL    string
	Header http.Header
}

func (t Target) clone() Target {
	return Target{URL: t.URL, Header: t.Header.Clone()}
}

// FromRequest builds a target from a client request, so the socket carries
// the same credentials and headers. http and https schemes become ws and
// wss.
func FromRequest(r client.Request) (Target, error) {
	if err := r.Err(); err != nil {
		return Target{}, err
	}
	if !r.Valid() {
		return Target{}, client.ErrInvalidURL
	}
	u, err := url.Parse(r.URL())
	if err != nil {
		return Target{}, fmt.Errorf("%w: %v", client.ErrInvalidURL, err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return Target{}, fmt.Errorf("%w: unsupported scheme %q", client.ErrInvalidURL, u.Scheme)
	}

	header := r.Header()
	// The handshake sets these itself.
	header.Del("Content-Type")
	header.Del("Accept")
	return Target{URL: u.String(), Header: header}, nil
}
