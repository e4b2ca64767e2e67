package session

import (
	"github.com/DoyleJ11/ludo-backend/internal/engine"
)

type Msg interface{ isSessionMsg() }

// Leave reports that the participant in Seat hung up.
type Leave struct{ Seat int }

func (Leave) isSessionMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isSessionMsg() {}

type Shutdown struct{}

func (Shutdown) isSessionMsg() {}

type Seat struct {
	Color         engine.Color
	Username      string
	ParticipantID string
}

// View is a copy of the board taken by the runner.
type View struct {
	ID      string
	Version int
	State   engine.State
	Seats   []Seat
	Log     []engine.Event
	Result  *Result
}

type Outcome string

const (
	OutcomeWon     Outcome = "won"
	OutcomeAborted Outcome = "aborted"
)

type Result struct {
	Outcome Outcome      `json:"outcome"`
	Winner  engine.Color `json:"winner,omitempty"`
	Reason  string       `json:"reason,omitempty"`
}
