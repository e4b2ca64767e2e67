package engine

import (
	"errors"
)

var ErrWrongTurn = errors.New("invalid turn")
var ErrIllegalMove = errors.New("illegal move")
var ErrUnknownPiece = errors.New("unknown piece")
var ErrInvalidDie = errors.New("die value out of range")
var ErrUnsupportedCommand = errors.New("unsupported command")
var ErrGameAlreadyCompleted = errors.New("game already completed")
var ErrGameNotStarted = errors.New("game not started")
var ErrGameAlreadyStarted = errors.New("game already started")

const (
	NumSeats  = 4
	NumPieces = 4
)

type Phase string

const (
	PhaseForming  Phase = "forming"
	PhasePlaying  Phase = "playing"
	PhaseFinished Phase = "finished"
)

type Rules struct {
	TrackLength int
	DieFaces    int
	ExitFace    int
}

func DefaultRules() Rules {
	return Rules{TrackLength: 57, DieFaces: 6, ExitFace: 6}
}

// State is the whole board of one session. It is a value type: Apply never
// mutates the state it was given.
type State struct {
	Phase  Phase
	Turn   int // seat index of the roller
	Die    int // pending roll, 0 when none
	Winner int // seat index, -1 until the game completes
	Pieces [NumSeats][NumPieces]Piece
	Rules  Rules
}

type CommandType string

const (
	CmdRoll    CommandType = "Roll"
	CmdMove    CommandType = "Move"
	CmdForfeit CommandType = "Forfeit"
)

/*
	CmdRoll    -> EvtDiceRolled -> (no legal move) EvtTurnForfeited -> EvtTurnAdvanced
	CmdMove    -> EvtPieceMoved -> EvtTurnAdvanced or EvtGameCompleted
	CmdForfeit -> EvtTurnForfeited -> EvtTurnAdvanced
*/

type Command struct {
	Type   CommandType
	Seat   int
	Die    int
	Piece  int
	Reason ForfeitReason
}

type ForfeitReason string

const (
	ForfeitNoMoves ForfeitReason = "no_moves"
	ForfeitTimeout ForfeitReason = "timeout"
	ForfeitDenied  ForfeitReason = "denied"
)

type EventType string

const (
	EvtGameStarted   EventType = "GameStarted"
	EvtDiceRolled    EventType = "DiceRolled"
	EvtPieceMoved    EventType = "PieceMoved"
	EvtTurnForfeited EventType = "TurnForfeited"
	EvtTurnAdvanced  EventType = "TurnAdvanced"
	EvtGameCompleted EventType = "GameCompleted"
)

type Event struct {
	Type   EventType
	Seat   int
	Die    int
	Piece  int
	From   int
	To     int
	Reason ForfeitReason
}

func Apply(s State, cmd Command) ([]Event, State, error) {
	switch s.Phase {
	case PhaseFinished:
		return nil, s, ErrGameAlreadyCompleted
	case PhaseForming:
		return nil, s, ErrGameNotStarted
	}
	if cmd.Seat != s.Turn {
		return nil, s, ErrWrongTurn
	}

	newState := s

	switch cmd.Type {
	case CmdRoll:
		if s.Die != 0 {
			return nil, s, ErrWrongTurn
		}
		if cmd.Die < 1 || cmd.Die > s.Rules.DieFaces {
			return nil, s, ErrInvalidDie
		}

		events := []Event{{Type: EvtDiceRolled, Seat: cmd.Seat, Die: cmd.Die}}
		newState.Die = cmd.Die

		// Zero legal moves: the turn is over without asking for input
		if !CanMoveAny(newState, cmd.Seat, cmd.Die) {
			events = append(events, forfeit(&newState, ForfeitNoMoves)...)
		}
		return events, newState, nil

	case CmdMove:
		if s.Die == 0 {
			return nil, s, ErrWrongTurn
		}
		if cmd.Piece < 0 || cmd.Piece >= NumPieces {
			return nil, s, ErrUnknownPiece
		}

		from := s.Pieces[cmd.Seat][cmd.Piece]
		to, err := from.Advance(s.Rules, s.Die)
		if err != nil {
			return nil, s, err
		}

		events := []Event{
			{Type: EvtPieceMoved, Seat: cmd.Seat, Piece: cmd.Piece, Die: s.Die, From: from.Pos, To: to.Pos},
		}
		newState.Pieces[cmd.Seat][cmd.Piece] = to
		newState.Die = 0

		// Completion
		if HasWon(newState, cmd.Seat) {
			newState.Phase = PhaseFinished
			newState.Winner = cmd.Seat
			return append(events, Event{Type: EvtGameCompleted, Seat: cmd.Seat}), newState, nil
		}

		newState.Turn = NextSeat(cmd.Seat)
		events = append(events, Event{Type: EvtTurnAdvanced, Seat: newState.Turn})
		return events, newState, nil

	case CmdForfeit:
		if s.Die == 0 {
			return nil, s, ErrWrongTurn
		}
		reason := cmd.Reason
		if reason == "" {
			reason = ForfeitTimeout
		}
		return forfeit(&newState, reason), newState, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func forfeit(s *State, reason ForfeitReason) []Event {
	seat := s.Turn
	s.Die = 0
	s.Turn = NextSeat(seat)
	return []Event{
		{Type: EvtTurnForfeited, Seat: seat, Reason: reason},
		{Type: EvtTurnAdvanced, Seat: s.Turn},
	}
}

// Reduce replays an event log on a fresh board.
func Reduce(rules Rules, events []Event) State {
	s := NewState(rules)
	for _, event := range events {
		switch event.Type {
		case EvtGameStarted:
			s.Phase = PhasePlaying
		case EvtDiceRolled:
			s.Phase = PhasePlaying
			s.Die = event.Die
		case EvtPieceMoved:
			s.Pieces[event.Seat][event.Piece] = Piece{Pos: event.To}
			s.Die = 0
		case EvtTurnForfeited:
			s.Die = 0
		case EvtTurnAdvanced:
			s.Turn = event.Seat
		case EvtGameCompleted:
			s.Phase = PhaseFinished
			s.Winner = event.Seat
		}
	}
	return s
}
