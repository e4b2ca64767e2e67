// Package session runs one game among four seated participants. The runner
// goroutine is the only writer of the board; participants only move bytes.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/protocol"
)

var ErrSeats = errors.New("a session needs exactly four participants")
var ErrShutdown = errors.New("session shut down")

type leftError struct{ seat int }

func (e *leftError) Error() string { return fmt.Sprintf("seat %d disconnected", e.seat) }

type Options struct {
	Rules engine.Rules
	// MoveTimeout bounds the wait for a move; the turn is forfeited after it.
	// Zero waits forever.
	MoveTimeout time.Duration
	// MaxDenials forfeits the turn after that many rejected moves. Zero
	// retries forever.
	MaxDenials int
	// TurnPause is slept between turns.
	TurnPause time.Duration
	Roller    Roller
}

type Session struct {
	ID string

	opts    Options
	players []*participant.Participant
	state   engine.State
	events  []engine.Event
	version int

	inbox  chan Msg
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	result Result
	final  View

	log *zap.Logger
}

// New seats players in the given order and starts the game.
func New(parent context.Context, players []*participant.Participant, opts Options, log *zap.Logger) (*Session, error) {
	if len(players) != engine.NumSeats {
		return nil, ErrSeats
	}
	if opts.Roller == nil {
		opts.Roller = RandomRoller{}
	}

	ctx, cancel := context.WithCancel(parent)
	id := uuid.NewString()
	s := &Session{
		ID:      id,
		opts:    opts,
		players: players,
		state:   engine.NewState(opts.Rules),
		inbox:   make(chan Msg, 64),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		log:     log.With(zap.String("session_id", id)),
	}

	for seat, p := range players {
		p.Assign(seat, engine.SeatColor(seat))
	}
	for seat, p := range players {
		go s.watch(seat, p)
	}

	go s.loop()
	return s, nil
}

func (s *Session) watch(seat int, p *participant.Participant) {
	select {
	case <-p.Done():
		select {
		case s.inbox <- Leave{Seat: seat}:
		case <-s.ctx.Done():
		}
	case <-s.ctx.Done():
	}
}

func (s *Session) loop() {
	defer s.teardown()

	events, started, err := engine.Start(s.state)
	if err != nil {
		s.finish(err)
		return
	}
	s.commit(events, started)
	s.log.Info("session started", zap.Strings("players", s.names()))

	for {
		if err := s.playTurn(); err != nil {
			s.finish(err)
			return
		}
		if s.state.Phase == engine.PhaseFinished {
			s.finish(nil)
			return
		}
		if err := s.pause(); err != nil {
			s.finish(err)
			return
		}
	}
}

func (s *Session) playTurn() error {
	seat := s.state.Turn
	s.players[seat].Drain()

	die := s.opts.Roller.Roll(s.opts.Rules.DieFaces)
	events, err := s.apply(engine.Command{Type: engine.CmdRoll, Seat: seat, Die: die})
	if err != nil {
		return err
	}

	// No legal move: the engine already ended the turn
	if engine.ContainsEvent(events, engine.EvtTurnForfeited) {
		return nil
	}
	return s.awaitMove(seat)
}

func (s *Session) awaitMove(seat int) error {
	p := s.players[seat]

	var timeout <-chan time.Time
	if s.opts.MoveTimeout > 0 {
		timer := time.NewTimer(s.opts.MoveTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	denials := 0
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()

		case m := <-s.inbox:
			if err := s.handle(m); err != nil {
				return err
			}

		case <-timeout:
			p.Logger().Info("move timed out", zap.Duration("after", s.opts.MoveTimeout))
			_, err := s.apply(engine.Command{Type: engine.CmdForfeit, Seat: seat, Reason: engine.ForfeitTimeout})
			return err

		case line := <-p.Lines():
			cmd, err := protocol.Parse(line)
			if cmd.Kind != protocol.CmdMove {
				p.Logger().Debug("ignoring line", zap.String("line", line))
				continue
			}
			if err == nil {
				_, err = s.apply(engine.Command{Type: engine.CmdMove, Seat: seat, Piece: cmd.Piece})
			}
			if err == nil {
				return nil
			}

			p.Send(protocol.MoveDenied)
			denials++
			p.Logger().Debug("move denied", zap.String("line", line), zap.Int("denials", denials), zap.Error(err))
			if s.opts.MaxDenials > 0 && denials >= s.opts.MaxDenials {
				_, err := s.apply(engine.Command{Type: engine.CmdForfeit, Seat: seat, Reason: engine.ForfeitDenied})
				return err
			}
		}
	}
}

// pause waits between turns while still answering the inbox.
func (s *Session) pause() error {
	if s.opts.TurnPause <= 0 {
		for {
			select {
			case m := <-s.inbox:
				if err := s.handle(m); err != nil {
					return err
				}
			default:
				return s.ctx.Err()
			}
		}
	}

	timer := time.NewTimer(s.opts.TurnPause)
	defer timer.Stop()
	for {
		select {
		case <-s.ctx.Done():
			return s.ctx.Err()
		case m := <-s.inbox:
			if err := s.handle(m); err != nil {
				return err
			}
		case <-timer.C:
			return nil
		}
	}
}

func (s *Session) handle(m Msg) error {
	switch msg := m.(type) {
	case Leave:
		return &leftError{seat: msg.Seat}
	case GetState:
		select {
		case msg.Reply <- s.view():
		default:
		}
	case Shutdown:
		return ErrShutdown
	}
	return nil
}

func (s *Session) apply(cmd engine.Command) ([]engine.Event, error) {
	events, next, err := engine.Apply(s.state, cmd)
	if err != nil {
		return nil, err
	}
	s.commit(events, next)
	return events, nil
}

func (s *Session) commit(events []engine.Event, next engine.State) {
	s.state = next
	s.events = append(s.events, events...)
	s.version++
	s.publish(events)
}

func (s *Session) publish(events []engine.Event) {
	for _, evt := range events {
		color := engine.SeatColor(evt.Seat)
		switch evt.Type {
		case engine.EvtGameStarted:
			s.broadcast(protocol.StartGame)
			for _, p := range s.players {
				p.Send(protocol.Color(p.Color()))
			}
		case engine.EvtDiceRolled:
			s.broadcast(protocol.Turn(color, evt.Die))
		case engine.EvtPieceMoved:
			s.broadcast(protocol.Move(evt.Piece))
		case engine.EvtTurnForfeited:
			if evt.Reason != engine.ForfeitNoMoves {
				s.broadcast(protocol.Forfeit(color))
			}
		case engine.EvtGameCompleted:
			s.broadcast(protocol.Win)
		}
		s.log.Debug("event",
			zap.String("type", string(evt.Type)),
			zap.String("color", string(color)),
			zap.Int("die", evt.Die),
			zap.Int("piece", evt.Piece),
			zap.Int("to", evt.To),
		)
	}
}

// broadcast fans line out to every seat. Send never blocks, so one dead
// peer cannot hold up the others.
func (s *Session) broadcast(line string) {
	for _, p := range s.players {
		p.Send(line)
	}
}

func (s *Session) finish(err error) {
	var left *leftError
	switch {
	case err == nil:
		color := engine.SeatColor(s.state.Winner)
		s.result = Result{Outcome: OutcomeWon, Winner: color}
		s.log.Info("session won", zap.String("winner", string(color)), zap.Int("events", len(s.events)))

	case errors.As(err, &left):
		color := engine.SeatColor(left.seat)
		for seat, p := range s.players {
			if seat != left.seat {
				p.Send(protocol.Abort(color))
			}
		}
		s.result = Result{Outcome: OutcomeAborted, Reason: "disconnect: " + string(color)}
		s.log.Info("session aborted", zap.String("left", string(color)))

	default:
		s.result = Result{Outcome: OutcomeAborted, Reason: err.Error()}
		s.log.Info("session aborted", zap.Error(err))
	}
}

func (s *Session) teardown() {
	s.cancel()
	for _, p := range s.players {
		p.Close()
	}
	s.final = s.view()
	s.final.Result = &s.result
	close(s.done)
}

func (s *Session) view() View {
	seats := make([]Seat, len(s.players))
	for i, p := range s.players {
		seats[i] = Seat{Color: p.Color(), Username: p.Name(), ParticipantID: p.ID}
	}
	return View{
		ID:      s.ID,
		Version: s.version,
		State:   s.state,
		Seats:   seats,
		Log:     append([]engine.Event(nil), s.events...),
	}
}

func (s *Session) names() []string {
	names := make([]string, len(s.players))
	for i, p := range s.players {
		names[i] = p.Name()
	}
	return names
}

// View returns a snapshot of the board. Once the game has ended it returns
// the final board along with the result.
func (s *Session) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	select {
	case s.inbox <- GetState{Reply: reply}:
	case <-s.done:
		return s.final, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-s.done:
		return s.final, nil
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

// Inbox exposes the session's message channel.
func (s *Session) Inbox() chan<- Msg { return s.inbox }

// Done is closed once the session reached a terminal state and released its
// participants.
func (s *Session) Done() <-chan struct{} { return s.done }

// Result is valid after Done is closed.
func (s *Session) Result() Result {
	<-s.done
	return s.result
}
