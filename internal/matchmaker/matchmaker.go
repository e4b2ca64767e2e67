// Package matchmaker groups arriving participants into four-seat sessions.
package matchmaker

import (
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/protocol"
	"github.com/DoyleJ11/ludo-backend/internal/session"
)

var ErrClosed = errors.New("matchmaker closed")

type Options struct {
	// JoinTimeout drops a participant that waited this long for a full
	// group. Zero waits forever.
	JoinTimeout time.Duration
	Session     session.Options
}

type entry struct {
	p       *participant.Participant
	joined  time.Time
	claimed chan struct{} // closed when the entry leaves the queue for good
}

type Matchmaker struct {
	inbox     chan Msg
	queue     []*entry
	sessions  map[string]*session.Session
	order     []string // session ids by start time
	completed int

	opts     Options
	timer    *time.Timer
	timerGen int

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	log    *zap.Logger
}

func New(parent context.Context, opts Options, log *zap.Logger) *Matchmaker {
	ctx, cancel := context.WithCancel(parent)
	m := &Matchmaker{
		inbox:    make(chan Msg, 64),
		sessions: make(map[string]*session.Session),
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		log:      log,
	}
	go m.loop()
	return m
}

func (m *Matchmaker) Inbox() chan<- Msg { return m.inbox }

// Done is closed once the matchmaker stopped.
func (m *Matchmaker) Done() <-chan struct{} { return m.done }

func (m *Matchmaker) loop() {
	defer close(m.done)
	for {
		select {
		case <-m.ctx.Done():
			m.shutdown()
			return

		case msg := <-m.inbox:
			switch msg := msg.(type) {
			case Enqueue:
				m.enqueue(msg.P)

			case leave:
				if m.remove(msg.e) {
					msg.e.p.Logger().Info("left queue")
					m.broadcastQueue(protocol.Waiting)
					m.armTimer()
				}

			case timerFired:
				if msg.gen != m.timerGen {
					break // stale
				}
				m.expire()

			case sessionEnded:
				if _, ok := m.sessions[msg.ID]; ok {
					delete(m.sessions, msg.ID)
					m.order = slices.DeleteFunc(m.order, func(id string) bool { return id == msg.ID })
					m.completed++
				}

			case GetSession:
				msg.Reply <- m.sessions[msg.ID] // May be nil

			case ListSessions:
				msg.Reply <- slices.Clone(m.order)

			case GetStats:
				msg.Reply <- Stats{Queued: len(m.queue), Sessions: len(m.sessions), Completed: m.completed}

			case Shutdown:
				m.shutdown()
				return
			}
		}
	}
}

func (m *Matchmaker) enqueue(p *participant.Participant) {
	m.prune()

	e := &entry{p: p, joined: time.Now(), claimed: make(chan struct{})}
	m.queue = append(m.queue, e)
	go m.watch(e)
	p.Logger().Info("joined queue", zap.Int("queued", len(m.queue)))

	m.broadcastQueue(protocol.NewUserInQueue)
	if len(m.queue) < engine.NumSeats {
		p.Send(protocol.Waiting)
		m.armTimer()
		return
	}
	m.startSession()
}

// watch reports a hang-up while e is still queued. Closing e.claimed is the
// one-shot signal that the entry left FORMING.
func (m *Matchmaker) watch(e *entry) {
	select {
	case <-e.p.Done():
		select {
		case m.inbox <- leave{e: e}:
		case <-m.ctx.Done():
		}
	case <-e.claimed:
	case <-m.ctx.Done():
	}
}

// prune drops queued participants whose connection is already gone, so a
// group never starts with a dead seat.
func (m *Matchmaker) prune() {
	kept := m.queue[:0]
	for _, e := range m.queue {
		select {
		case <-e.p.Done():
			close(e.claimed)
		default:
			kept = append(kept, e)
		}
	}
	clear(m.queue[len(kept):])
	m.queue = kept
}

func (m *Matchmaker) startSession() {
	group := m.queue[:engine.NumSeats]
	m.queue = append([]*entry(nil), m.queue[engine.NumSeats:]...)
	m.armTimer()

	players := make([]*participant.Participant, len(group))
	for i, e := range group {
		close(e.claimed)
		players[i] = e.p
	}

	s, err := session.New(m.ctx, players, m.opts.Session, m.log)
	if err != nil {
		m.log.Error("create session", zap.Error(err))
		for _, p := range players {
			p.Close()
		}
		return
	}
	m.sessions[s.ID] = s
	m.order = append(m.order, s.ID)

	go func() {
		<-s.Done()
		select {
		case m.inbox <- sessionEnded{ID: s.ID}:
		case <-m.ctx.Done():
		}
	}()
}

func (m *Matchmaker) remove(e *entry) bool {
	for i, q := range m.queue {
		if q == e {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			close(e.claimed)
			return true
		}
	}
	return false
}

// armTimer schedules the acceptance timeout of the oldest queued entry.
// Bumping the generation turns any pending fire into a no-op.
func (m *Matchmaker) armTimer() {
	m.timerGen++
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	if m.opts.JoinTimeout <= 0 || len(m.queue) == 0 {
		return
	}

	gen := m.timerGen
	wait := time.Until(m.queue[0].joined.Add(m.opts.JoinTimeout))
	m.timer = time.AfterFunc(max(wait, 0), func() {
		select {
		case m.inbox <- timerFired{gen: gen}:
		case <-m.ctx.Done():
		}
	})
}

func (m *Matchmaker) expire() {
	now := time.Now()
	kept := m.queue[:0]
	dropped := 0
	for _, e := range m.queue {
		if now.Sub(e.joined) < m.opts.JoinTimeout {
			kept = append(kept, e)
			continue
		}
		e.p.Logger().Info("queue timeout", zap.Duration("waited", now.Sub(e.joined)))
		e.p.Send(protocol.QueueTimeout)
		close(e.claimed)
		e.p.Close()
		dropped++
	}
	clear(m.queue[len(kept):])
	m.queue = kept

	if dropped > 0 {
		m.broadcastQueue(protocol.Waiting)
	}
	m.armTimer()
}

func (m *Matchmaker) broadcastQueue(line string) {
	for _, e := range m.queue {
		e.p.Send(line)
	}
}

func (m *Matchmaker) shutdown() {
	m.cancel() // sessions run under m.ctx and abort with it
	if m.timer != nil {
		m.timer.Stop()
	}
	for _, e := range m.queue {
		close(e.claimed)
		e.p.Close()
	}
	m.queue = nil
	clear(m.sessions)
	m.order = nil
	m.log.Info("matchmaker stopped")
}

func (m *Matchmaker) closed() bool {
	select {
	case <-m.done:
		return true
	default:
		return false
	}
}

// Enqueue hands an authenticated participant to the matchmaker.
func (m *Matchmaker) Enqueue(ctx context.Context, p *participant.Participant) error {
	if m.closed() {
		return ErrClosed
	}
	select {
	case m.inbox <- Enqueue{P: p}:
		return nil
	case <-m.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ask sends a request built around a fresh reply channel and waits for the
// answer.
func ask[T any](ctx context.Context, m *Matchmaker, build func(chan T) Msg) (T, error) {
	var zero T
	if m.closed() {
		return zero, ErrClosed
	}
	reply := make(chan T, 1)
	select {
	case m.inbox <- build(reply):
	case <-m.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-m.done:
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (m *Matchmaker) Stats(ctx context.Context) (Stats, error) {
	return ask(ctx, m, func(reply chan Stats) Msg { return GetStats{Reply: reply} })
}

// Session returns the running session with id, or nil.
func (m *Matchmaker) Session(ctx context.Context, id string) (*session.Session, error) {
	return ask(ctx, m, func(reply chan *session.Session) Msg { return GetSession{ID: id, Reply: reply} })
}

// Sessions lists the ids of running sessions, oldest first.
func (m *Matchmaker) Sessions(ctx context.Context) ([]string, error) {
	return ask(ctx, m, func(reply chan []string) Msg { return ListSessions{Reply: reply} })
}
