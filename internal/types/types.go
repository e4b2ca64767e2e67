package types

import (
	"github.com/DoyleJ11/ludo-backend/internal/engine"
	"github.com/DoyleJ11/ludo-backend/internal/session"
)

type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserCreated struct {
	Username string `json:"username"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type SessionList struct {
	Sessions []string `json:"sessions"`
}

type SeatSnapshot struct {
	Color    engine.Color `json:"color"`
	Username string       `json:"username"`
	Pieces   []int        `json:"pieces"` // track positions, 0 is home
}

type SessionSnapshot struct {
	ID      string          `json:"id"`
	Version int             `json:"version"`
	Phase   engine.Phase    `json:"phase"`
	Turn    engine.Color    `json:"turn,omitempty"`
	Die     int             `json:"die,omitempty"`
	Track   int             `json:"track_length"`
	Seats   []SeatSnapshot  `json:"seats"`
	Result  *session.Result `json:"result,omitempty"`
}

func NewSessionSnapshot(v session.View) SessionSnapshot {
	snap := SessionSnapshot{
		ID:      v.ID,
		Version: v.Version,
		Phase:   v.State.Phase,
		Die:     v.State.Die,
		Track:   v.State.Rules.TrackLength,
		Result:  v.Result,
	}
	if v.State.Phase == engine.PhasePlaying {
		snap.Turn = engine.SeatColor(v.State.Turn)
	}
	for seat, s := range v.Seats {
		pieces := make([]int, engine.NumPieces)
		for i, p := range v.State.Pieces[seat] {
			pieces[i] = p.Pos
		}
		snap.Seats = append(snap.Seats, SeatSnapshot{Color: s.Color, Username: s.Username, Pieces: pieces})
	}
	return snap
}
