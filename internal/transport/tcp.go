package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"
)

// LineConn is a Conn over any net.Conn, newline framed.
type LineConn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
}

func NewLineConn(conn net.Conn) *LineConn {
	return &LineConn{conn: conn, r: bufio.NewReaderSize(conn, 512)}
}

// ReadLine returns ErrLineTooLong for a line over MaxLineLength; the rest of
// that line is discarded and the next call reads the following one. Any other
// error is terminal.
func (c *LineConn) ReadLine(ctx context.Context) (string, error) {
	stop := c.bindDeadline(ctx, c.conn.SetReadDeadline)
	defer stop()

	var line []byte
	tooLong := false
	for {
		frag, err := c.r.ReadSlice('\n')
		if !tooLong {
			line = append(line, frag...)
			tooLong = len(bytes.TrimRight(line, "\r\n")) > MaxLineLength
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", classify(err)
		}
		if tooLong {
			return "", ErrLineTooLong
		}
		return string(bytes.TrimRight(line, "\r\n")), nil
	}
}

func (c *LineConn) WriteLine(ctx context.Context, line string) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()

	stop := c.bindDeadline(ctx, c.conn.SetWriteDeadline)
	defer stop()

	if _, err := io.WriteString(c.conn, line+"\n"); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return classify(err)
	}
	return nil
}

func (c *LineConn) Close() error {
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

func (c *LineConn) RemoteAddr() string {
	if addr := c.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// bindDeadline maps the context deadline and cancellation onto the socket
// deadline setter. The returned func must be called before the next I/O.
func (c *LineConn) bindDeadline(ctx context.Context, set func(time.Time) error) func() {
	if dl, ok := ctx.Deadline(); ok {
		_ = set(dl)
	}
	stop := context.AfterFunc(ctx, func() {
		_ = set(time.Now())
	})
	return func() {
		stop()
		_ = set(time.Time{})
	}
}

func classify(err error) error {
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), errors.Is(err, io.ErrClosedPipe):
		return ErrClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return context.DeadlineExceeded
	default:
		return errors.Join(ErrClosed, err)
	}
}
