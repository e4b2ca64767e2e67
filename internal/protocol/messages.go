// Package protocol is the line grammar spoken on a game connection.
//
// Every message is one UTF-8 line of space separated tokens. Inbound:
//
//	LOGIN <username> <password>
//	MOVE <pieceId>              pieceId in 0..3
//
// Outbound (engine -> one or all participants):
//
//	LOGINREQUEST | LOGINACCEPTED | LOGINDENIED
//	NEWUSERINQUEUE | WAITING | QUEUETIMEOUT
//	STARTGAME | COLOR <color>
//	TURN <color> <die> | MOVE <pieceId> | MOVEDENIED | FORFEIT <color>
//	WIN | ABORT <color>
package protocol

import (
	"strconv"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
)

const (
	LoginRequest   = "LOGINREQUEST"
	LoginAccepted  = "LOGINACCEPTED"
	LoginDenied    = "LOGINDENIED"
	NewUserInQueue = "NEWUSERINQUEUE"
	Waiting        = "WAITING"
	QueueTimeout   = "QUEUETIMEOUT"
	StartGame      = "STARTGAME"
	MoveDenied     = "MOVEDENIED"
	Win            = "WIN"
)

const (
	verbColor   = "COLOR"
	verbTurn    = "TURN"
	verbMove    = "MOVE"
	verbForfeit = "FORFEIT"
	verbAbort   = "ABORT"
	verbLogin   = "LOGIN"
)

func Color(c engine.Color) string {
	return verbColor + " " + string(c)
}

func Turn(c engine.Color, die int) string {
	return verbTurn + " " + string(c) + " " + strconv.Itoa(die)
}

func Move(piece int) string {
	return verbMove + " " + strconv.Itoa(piece)
}

func Forfeit(c engine.Color) string {
	return verbForfeit + " " + string(c)
}

func Abort(c engine.Color) string {
	return verbAbort + " " + string(c)
}

func Login(username, password string) string {
	return verbLogin + " " + username + " " + password
}
