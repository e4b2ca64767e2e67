// Package transporttest provides an in-memory peer for code that talks to a
// transport.Conn.
package transporttest

import (
	"bufio"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DoyleJ11/ludo-backend/internal/transport"
)

// Client is the remote end of a Pipe. Every line the server writes lands in
// a buffered channel so the server side never blocks on the test.
type Client struct {
	conn  net.Conn
	lines chan string

	closeOnce sync.Once
}

// Pipe returns the server side as a transport.Conn and the client that
// talks to it.
func Pipe(t testing.TB) (*transport.LineConn, *Client) {
	t.Helper()
	server, client := net.Pipe()
	c := &Client{conn: client, lines: make(chan string, 512)}
	go c.readLoop()
	t.Cleanup(func() {
		c.Close()
		_ = server.Close()
	})
	return transport.NewLineConn(server), c
}

func (c *Client) readLoop() {
	defer close(c.lines)
	r := bufio.NewReader(c.conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err != io.EOF && line != "" {
				c.lines <- strings.TrimRight(line, "\r\n")
			}
			return
		}
		c.lines <- strings.TrimRight(line, "\r\n")
	}
}

// Write sends one line from the client.
func (c *Client) Write(line string) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(time.Second))
	_, err := io.WriteString(c.conn, line+"\n")
	return err
}

// Send is Write that fails the test on error.
func (c *Client) Send(t testing.TB, line string) {
	t.Helper()
	if err := c.Write(line); err != nil {
		t.Fatalf("client send %q: %v", line, err)
	}
}

// Next returns the next line the server wrote.
func (c *Client) Next(t testing.TB, within time.Duration) string {
	t.Helper()
	select {
	case line, ok := <-c.lines:
		if !ok {
			t.Fatalf("connection closed while waiting for a line")
		}
		return line
	case <-time.After(within):
		t.Fatalf("timed out waiting for a line")
		return "" // unreachable
	}
}

// Expect fails unless the next line equals want.
func (c *Client) Expect(t testing.TB, want string, within time.Duration) {
	t.Helper()
	if got := c.Next(t, within); got != want {
		t.Fatalf("want line %q, got %q", want, got)
	}
}

// Until reads lines up to and including want, returning everything read.
func (c *Client) Until(t testing.TB, want string, within time.Duration) []string {
	t.Helper()
	deadline := time.Now().Add(within)
	var seen []string
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			t.Fatalf("did not see %q, got %q", want, seen)
		}
		line := c.Next(t, remaining)
		seen = append(seen, line)
		if line == want {
			return seen
		}
	}
}

// WaitClosed fails unless the server closes the connection in time and
// returns the lines received before the close.
func (c *Client) WaitClosed(t testing.TB, within time.Duration) []string {
	t.Helper()
	timeout := time.After(within)
	var rest []string
	for {
		select {
		case line, ok := <-c.lines:
			if !ok {
				return rest
			}
			rest = append(rest, line)
		case <-timeout:
			t.Fatalf("connection still open after %v", within)
			return rest
		}
	}
}

// Close hangs up from the client side.
func (c *Client) Close() {
	c.closeOnce.Do(func() { _ = c.conn.Close() })
}
