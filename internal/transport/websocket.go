package transport

import (
	"context"
	"errors"
	"strings"

	"github.com/coder/websocket"
)

// WebSocketConn carries one line per text message.
type WebSocketConn struct {
	conn   *websocket.Conn
	remote string
}

func NewWebSocketConn(conn *websocket.Conn, remote string) *WebSocketConn {
	conn.SetReadLimit(MaxLineLength)
	return &WebSocketConn{conn: conn, remote: remote}
}

func (c *WebSocketConn) ReadLine(ctx context.Context) (string, error) {
	for {
		typ, data, err := c.conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return "", ErrClosed
			}
			return "", errors.Join(ErrClosed, err)
		}
		if typ != websocket.MessageText {
			continue
		}
		return strings.TrimRight(string(data), "\r\n"), nil
	}
}

func (c *WebSocketConn) WriteLine(ctx context.Context, line string) error {
	if err := c.conn.Write(ctx, websocket.MessageText, []byte(line)); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return errors.Join(ErrClosed, err)
	}
	return nil
}

func (c *WebSocketConn) Close() error {
	return c.conn.Close(websocket.StatusNormalClosure, "bye")
}

func (c *WebSocketConn) RemoteAddr() string { return c.remote }
