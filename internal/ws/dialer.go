package ws

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the session uses.
type Conn interface {
	Close() error
	WriteMessage(messageType int, data []byte) error
	ReadMessage() (messageType int, p []byte, err error)
}

// Dialer opens a socket to the chat endpoint for a bearer token.
type Dialer interface {
	Dial(ctx context.Context, token string) (Conn, error)
}

type GorillaDialer struct {
	url    string
	dialer *websocket.Dialer
}

func NewDialer(endpoint string, handshakeTimeout time.Duration) *GorillaDialer {
	return &GorillaDialer{
		url: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: handshakeTimeout,
		},
	}
}

// Dial connects to the endpoint with the token passed as a query parameter.
func (d *GorillaDialer) Dial(ctx context.Context, token string) (Conn, error) {
	u, err := url.Parse(d.url)
	if err != nil {
		return nil, fmt.Errorf("invalid socket url %q: %w", d.url, err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, resp, err := d.dialer.DialContext(ctx, u.String(), nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", d.url, err)
	}
	return conn, nil
}
