package matchmaker

import (
	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/session"
)

type Msg interface{ isMatchmakerMsg() }

type Enqueue struct {
	P *participant.Participant
}

type GetSession struct {
	ID    string
	Reply chan *session.Session
}

type ListSessions struct {
	Reply chan []string
}

type GetStats struct {
	Reply chan Stats
}

type Shutdown struct{}

type leave struct{ e *entry }

type sessionEnded struct{ ID string }

type timerFired struct{ gen int }

func (Enqueue) isMatchmakerMsg()      {}
func (GetSession) isMatchmakerMsg()   {}
func (ListSessions) isMatchmakerMsg() {}
func (GetStats) isMatchmakerMsg()     {}
func (Shutdown) isMatchmakerMsg()     {}
func (leave) isMatchmakerMsg()        {}
func (sessionEnded) isMatchmakerMsg() {}
func (timerFired) isMatchmakerMsg()   {}

type Stats struct {
	Queued    int `json:"queued"`
	Sessions  int `json:"sessions"`
	Completed int `json:"completed"`
}
