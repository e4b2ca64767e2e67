// Package participant wraps one game connection. Reads and writes run on
// their own goroutines so the session runner never blocks on the network.
package participant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
	"github.com/DoyleJ11/ludo-backend/internal/transport"
)

var ErrDisconnected = errors.New("participant disconnected")

const (
	outboxSize   = 64
	inboxSize    = 16
	writeTimeout = 3 * time.Second
)

type Participant struct {
	ID string

	conn   transport.Conn
	outbox chan string
	inbox  chan string
	quit   chan struct{} // Close requested, flush then hang up
	done   chan struct{} // connection finished

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.RWMutex
	name  string
	seat  int
	color engine.Color

	quitOnce sync.Once
	doneOnce sync.Once

	log *zap.Logger
}

// New takes ownership of conn and starts its pumps.
func New(conn transport.Conn, log *zap.Logger) *Participant {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	p := &Participant{
		ID:     id,
		conn:   conn,
		outbox: make(chan string, outboxSize),
		inbox:  make(chan string, inboxSize),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
		seat:   -1,
		log:    log.With(zap.String("participant_id", id), zap.String("remote", conn.RemoteAddr())),
	}

	go p.readPump()
	go p.writePump()
	return p
}

func (p *Participant) readPump() {
	for {
		line, err := p.conn.ReadLine(p.ctx)
		if errors.Is(err, transport.ErrLineTooLong) {
			p.Logger().Warn("dropping over-long line")
			continue
		}
		if err != nil {
			if !errors.Is(err, transport.ErrClosed) && !errors.Is(err, context.Canceled) {
				p.Logger().Debug("read failed", zap.Error(err))
			}
			p.terminate()
			return
		}

		select {
		case p.inbox <- line:
		case <-p.done:
			return
		default:
			p.Logger().Warn("inbound buffer full, dropping line", zap.String("line", line))
		}
	}
}

func (p *Participant) writePump() {
	for {
		select {
		case <-p.done:
			return

		case line := <-p.outbox:
			if err := p.write(line); err != nil {
				p.Logger().Debug("write failed", zap.Error(err))
				p.terminate()
				return
			}

		case <-p.quit:
			// Flush whatever the engine already queued, then hang up
			for {
				select {
				case line := <-p.outbox:
					if err := p.write(line); err != nil {
						p.terminate()
						return
					}
				default:
					p.terminate()
					return
				}
			}
		}
	}
}

func (p *Participant) write(line string) error {
	ctx, cancel := context.WithTimeout(p.ctx, writeTimeout)
	defer cancel()
	return p.conn.WriteLine(ctx, line)
}

func (p *Participant) terminate() {
	p.doneOnce.Do(func() {
		close(p.done)
		// Close before cancel: a cancelled WebSocket read tears the socket
		// down without the close frame.
		if err := p.conn.Close(); err != nil {
			p.Logger().Debug("close failed", zap.Error(err))
		}
		p.cancel()
		p.Logger().Debug("connection closed")
	})
}

// Logger returns the participant's logger, tagged with its identity.
func (p *Participant) Logger() *zap.Logger {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.log
}

// Send queues line for delivery and returns immediately. A peer that lets its
// outbox fill up is dropped.
func (p *Participant) Send(line string) {
	select {
	case <-p.done:
		return
	default:
	}

	select {
	case p.outbox <- line:
	default:
		p.Logger().Warn("outbox full, dropping slow client")
		// A close handshake may wait on the peer; Send must not
		go p.terminate()
	}
}

// ReceiveLine blocks for the next inbound line. A hang-up is reported as
// ErrDisconnected, never as a line.
func (p *Participant) ReceiveLine(ctx context.Context) (string, error) {
	select {
	case line := <-p.inbox:
		return line, nil
	default:
	}

	select {
	case line := <-p.inbox:
		return line, nil
	case <-p.done:
		return "", ErrDisconnected
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Lines exposes inbound lines for callers that select over other events.
func (p *Participant) Lines() <-chan string { return p.inbox }

// Drain discards inbound lines that arrived before now.
func (p *Participant) Drain() int {
	n := 0
	for {
		select {
		case <-p.inbox:
			n++
		default:
			return n
		}
	}
}

// Done is closed when the connection is gone.
func (p *Participant) Done() <-chan struct{} { return p.done }

// Close flushes queued lines and then closes the connection.
func (p *Participant) Close() {
	p.quitOnce.Do(func() { close(p.quit) })
}

// Assign seats the participant. Called once, by the session that owns it.
func (p *Participant) Assign(seat int, color engine.Color) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seat = seat
	p.color = color
	p.log = p.log.With(zap.String("color", string(color)))
}

func (p *Participant) SetName(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.name = name
	p.log = p.log.With(zap.String("username", name))
}

func (p *Participant) Name() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.name
}

func (p *Participant) Seat() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.seat
}

func (p *Participant) Color() engine.Color {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.color
}
