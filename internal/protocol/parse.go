package protocol

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
)

var ErrMalformed = errors.New("malformed command")
var ErrUnknownCommand = errors.New("unknown command")
var ErrPieceOutOfRange = errors.New("piece id out of range")

type CommandKind string

const (
	CmdMove  CommandKind = "MOVE"
	CmdLogin CommandKind = "LOGIN"
)

type Command struct {
	Kind     CommandKind
	Piece    int
	Username string
	Password string
}

// Parse decodes one inbound line. The returned command is only meaningful
// when err is nil, except that a MOVE with a bad piece id still reports
// Kind so callers can deny it.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, ErrMalformed
	}

	switch CommandKind(fields[0]) {
	case CmdMove:
		if len(fields) != 2 {
			return Command{Kind: CmdMove}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		piece, err := strconv.Atoi(fields[1])
		if err != nil {
			return Command{Kind: CmdMove}, fmt.Errorf("%w: %q", ErrMalformed, line)
		}
		if piece < 0 || piece >= engine.NumPieces {
			return Command{Kind: CmdMove, Piece: piece}, fmt.Errorf("%w: %d", ErrPieceOutOfRange, piece)
		}
		return Command{Kind: CmdMove, Piece: piece}, nil

	case CmdLogin:
		if len(fields) != 3 {
			return Command{Kind: CmdLogin}, ErrMalformed
		}
		return Command{Kind: CmdLogin, Username: fields[1], Password: fields[2]}, nil

	default:
		return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
	}
}
