// internal/channel/transport.go
package channel

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Close codes carried by CloseError.
const (
	CloseNormal   = 1000
	closeAbnormal = 1006
)

// CloseError reports why a connection ended. The transport maps its own
// error types onto this so the channel never inspects transport internals.
type CloseError struct {
	Code   int
	Reason string
}

func (e *CloseError) Error() string {
	return fmt.Sprintf("connection closed (code %d): %s", e.Code, e.Reason)
}

// Conn is a single bidirectional, message-framed connection.
type Conn interface {
	// ReadMessage blocks until the next frame arrives. On connection end it
	// returns a *CloseError.
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close(code int, reason string) error
}

// Transport opens connections. Injected so tests can drive the channel
// without a network.
type Transport interface {
	Dial(ctx context.Context, rawURL string) (Conn, error)
}

// WebsocketTransport dials real websocket connections.
type WebsocketTransport struct {
	dialer *websocket.Dialer
}

func NewWebsocketTransport() *WebsocketTransport {
	return &WebsocketTransport{dialer: websocket.DefaultDialer}
}

func (t *WebsocketTransport) Dial(ctx context.Context, rawURL string) (Conn, error) {
	ws, resp, err := t.dialer.DialContext(ctx, rawURL, nil)
	if err != nil {
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) {
			return nil, &CloseError{Code: ce.Code, Reason: ce.Text}
		}
		// Abrupt network loss never delivers a close frame; treat it the
		// same as the browser's 1006.
		return nil, &CloseError{Code: closeAbnormal, Reason: err.Error()}
	}
	return data, nil
}

func (c *wsConn) WriteJSON(v interface{}) error {
	return c.ws.WriteJSON(v)
}

func (c *wsConn) Close(code int, reason string) error {
	deadline := time.Now().Add(time.Second)
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason), deadline)
	return c.ws.Close()
}
