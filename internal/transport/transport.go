// Package transport frames a duplex byte stream into text lines.
package transport

import (
	"context"
	"errors"
)

// ErrClosed is returned once the peer has gone away or the connection was
// closed locally. It is never a line.
var ErrClosed = errors.New("transport closed")

// ErrLineTooLong reports an inbound line over MaxLineLength. The line is
// dropped; the connection stays usable.
var ErrLineTooLong = errors.New("line too long")

// MaxLineLength bounds a single inbound line.
const MaxLineLength = 4096

type Conn interface {
	// ReadLine blocks for the next line, without its terminator.
	ReadLine(ctx context.Context) (string, error)
	// WriteLine writes line followed by a newline.
	WriteLine(ctx context.Context, line string) error
	Close() error
	RemoteAddr() string
}
