package transport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// maxFrame caps the size of one inbound record on every transport.
const maxFrame = 64 << 10

// WSConn carries one JSON record per text frame.
type WSConn struct {
	id           string
	remote       string
	conn         *websocket.Conn
	writeTimeout time.Duration
	closeOnce    sync.Once
}

// AcceptWS upgrades an HTTP request to a WebSocket connection.
func AcceptWS(w http.ResponseWriter, r *http.Request, writeTimeout time.Duration) (*WSConn, error) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		return nil, err
	}
	return NewWSConn(conn, r.RemoteAddr, writeTimeout), nil
}

func NewWSConn(conn *websocket.Conn, remote string, writeTimeout time.Duration) *WSConn {
	conn.SetReadLimit(maxFrame)
	return &WSConn{id: uuid.NewString(), remote: remote, conn: conn, writeTimeout: writeTimeout}
}

func (c *WSConn) ID() string         { return c.id }
func (c *WSConn) RemoteAddr() string { return c.remote }

func (c *WSConn) Receive(ctx context.Context) ([]byte, error) {
	_, b, err := c.conn.Read(ctx)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (c *WSConn) Send(ctx context.Context, v any) error {
	if c.writeTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.writeTimeout)
		defer cancel()
	}
	return wsjson.Write(ctx, c.conn, v)
}

func (c *WSConn) Close() error {
	err := ErrClosed
	c.closeOnce.Do(func() {
		err = c.conn.Close(websocket.StatusNormalClosure, "")
	})
	return err
}
