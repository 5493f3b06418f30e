package voicelink

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// Socket is the subset of *websocket.Conn used by ConnectionManager.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Dialer opens sockets to an endpoint.
type Dialer interface {
	Dial(ctx context.Context, endpoint string) (Socket, error)
}

// WebSocketDialer dials with gorilla/websocket.
type WebSocketDialer struct {
	// Header is sent with the handshake request.
	Header http.Header

	// HandshakeTimeout bounds the handshake. Zero uses the context deadline.
	HandshakeTimeout time.Duration
}

// Dial implements Dialer.
func (d *WebSocketDialer) Dial(ctx context.Context, endpoint string) (Socket, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	conn, resp, err := dialer.DialContext(ctx, endpoint, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("voicelink: handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("voicelink: dial: %w", err)
	}
	return conn, nil
}
