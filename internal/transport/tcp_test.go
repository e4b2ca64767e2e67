package transport_test

import (
	"context"
	"errors"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/ludo-backend/internal/transport"
	"github.com/DoyleJ11/ludo-backend/internal/transport/transporttest"
)

func TestLineConn_RoundTrip(t *testing.T) {
	conn, client := transporttest.Pipe(t)

	go func() { _ = client.Write("MOVE 1\r") }()
	line, err := conn.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MOVE 1", line)

	require.NoError(t, conn.WriteLine(context.Background(), "MOVEDENIED"))
	client.Expect(t, "MOVEDENIED", time.Second)
}

func TestLineConn_PeerCloseIsErrClosed(t *testing.T) {
	conn, client := transporttest.Pipe(t)
	client.Close()

	_, err := conn.ReadLine(context.Background())
	assert.ErrorIs(t, err, transport.ErrClosed)
}

func TestLineConn_ReadHonoursDeadline(t *testing.T) {
	conn, _ := transporttest.Pipe(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := conn.ReadLine(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestLineConn_ReadHonoursCancel(t *testing.T) {
	conn, _ := transporttest.Pipe(t)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	_, err := conn.ReadLine(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLineConn_OverlongLineIsSkipped(t *testing.T) {
	server, client := net.Pipe()
	t.Cleanup(func() { _ = client.Close(); _ = server.Close() })
	conn := transport.NewLineConn(server)

	go func() {
		_, _ = client.Write([]byte(strings.Repeat("x", transport.MaxLineLength+10) + "\n"))
		_, _ = client.Write([]byte("MOVE 2\n"))
	}()

	_, err := conn.ReadLine(context.Background())
	assert.ErrorIs(t, err, transport.ErrLineTooLong)

	line, err := conn.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "MOVE 2", line)
}
