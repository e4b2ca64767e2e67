package session

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/DoyleJ11/ludo-backend/internal/engine"
	"github.com/DoyleJ11/ludo-backend/internal/participant"
	"github.com/DoyleJ11/ludo-backend/internal/protocol"
	"github.com/DoyleJ11/ludo-backend/internal/transport"
	"github.com/DoyleJ11/ludo-backend/internal/transport/transporttest"
)

const within = time.Second

// One 6 takes a piece from home straight to done.
var shortTrack = engine.Rules{TrackLength: 6, DieFaces: 6, ExitFace: 6}

type table struct {
	s       *Session
	clients []*transporttest.Client
	cancel  context.CancelFunc
}

func script(rolls ...int) RollerFunc {
	i := 0
	return func(faces int) int {
		if i >= len(rolls) {
			return 1
		}
		r := rolls[i]
		i++
		return r
	}
}

func newTable(t *testing.T, opts Options) *table {
	t.Helper()
	players := make([]*participant.Participant, engine.NumSeats)
	clients := make([]*transporttest.Client, engine.NumSeats)
	for i := range players {
		conn, client := transporttest.Pipe(t)
		players[i] = participant.New(conn, zap.NewNop())
		players[i].SetName(fmt.Sprintf("player%d", i))
		clients[i] = client
	}

	if opts.TurnPause == 0 {
		opts.TurnPause = 2 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	s, err := New(ctx, players, opts, zap.NewNop())
	require.NoError(t, err)
	return &table{s: s, clients: clients, cancel: cancel}
}

func (tb *table) expectAll(t *testing.T, line string) {
	t.Helper()
	for _, c := range tb.clients {
		c.Expect(t, line, within)
	}
}

func (tb *table) expectStart(t *testing.T) {
	t.Helper()
	tb.expectAll(t, protocol.StartGame)
	for seat, c := range tb.clients {
		c.Expect(t, protocol.Color(engine.SeatOrder[seat]), within)
	}
}

func (tb *table) waitDone(t *testing.T) Result {
	t.Helper()
	select {
	case <-tb.s.Done():
		return tb.s.Result()
	case <-time.After(2 * within):
		t.Fatalf("session did not finish")
		return Result{}
	}
}

func TestNew_RequiresFourPlayers(t *testing.T) {
	_, err := New(context.Background(), nil, Options{Rules: shortTrack}, zap.NewNop())
	assert.ErrorIs(t, err, ErrSeats)
}

func TestSession_PlaysToWin(t *testing.T) {
	tb := newTable(t, Options{
		Rules:  shortTrack,
		Roller: script(6, 1, 1, 1, 6, 1, 1, 1, 6, 1, 1, 1, 6),
	})
	red, blue := tb.clients[0], tb.clients[1]

	tb.expectStart(t)

	// Out of turn input is ignored, not denied
	blue.Send(t, "MOVE 2")

	for k := 0; k < engine.NumPieces; k++ {
		tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))

		if k == 0 {
			v, err := tb.s.View(context.Background())
			require.NoError(t, err)
			assert.Equal(t, 6, v.State.Die)
			assert.Equal(t, 0, v.State.Turn)
			assert.Equal(t, "player2", v.Seats[2].Username)
		}
		if k == 1 {
			// Piece 0 is done; any further move overshoots
			red.Send(t, protocol.Move(0))
			red.Expect(t, protocol.MoveDenied, within)
		}

		red.Send(t, protocol.Move(k))
		tb.expectAll(t, protocol.Move(k))
		if k == engine.NumPieces-1 {
			break
		}
		tb.expectAll(t, protocol.Turn(engine.ColorBlue, 1))
		tb.expectAll(t, protocol.Turn(engine.ColorYellow, 1))
		tb.expectAll(t, protocol.Turn(engine.ColorGreen, 1))
	}
	tb.expectAll(t, protocol.Win)

	res := tb.waitDone(t)
	assert.Equal(t, OutcomeWon, res.Outcome)
	assert.Equal(t, engine.ColorRed, res.Winner)

	for _, c := range tb.clients {
		assert.Empty(t, c.WaitClosed(t, within))
	}

	v, err := tb.s.View(context.Background())
	require.NoError(t, err)
	require.NotNil(t, v.Result)
	assert.Equal(t, engine.PhaseFinished, v.State.Phase)
	assert.Equal(t, v.State, engine.Reduce(shortTrack, v.Log))
}

func TestSession_MoveTimeoutForfeits(t *testing.T) {
	tb := newTable(t, Options{
		Rules:       shortTrack,
		MoveTimeout: 50 * time.Millisecond,
		Roller:      script(6, 1),
	})
	tb.expectStart(t)

	tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))
	tb.expectAll(t, protocol.Forfeit(engine.ColorRed))

	tb.expectAll(t, protocol.Turn(engine.ColorBlue, 1))
}

func TestSession_DenialCapForfeits(t *testing.T) {
	tb := newTable(t, Options{
		Rules:      shortTrack,
		MaxDenials: 2,
		Roller:     script(6, 1),
	})
	red := tb.clients[0]
	tb.expectStart(t)
	tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))

	red.Send(t, "MOVE 7")
	red.Expect(t, protocol.MoveDenied, within)
	red.Send(t, "MOVE")
	red.Expect(t, protocol.MoveDenied, within)

	tb.expectAll(t, protocol.Forfeit(engine.ColorRed))
	tb.expectAll(t, protocol.Turn(engine.ColorBlue, 1))
}

func TestSession_UnknownCommandsAreIgnored(t *testing.T) {
	tb := newTable(t, Options{
		Rules:  shortTrack,
		Roller: script(6),
	})
	red := tb.clients[0]
	tb.expectStart(t)
	tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))

	red.Send(t, "MESSAGE hello")
	red.Send(t, "LOGIN a b")
	red.Send(t, protocol.Move(3))
	// The first line red sees after its own turn is the move broadcast
	red.Expect(t, protocol.Move(3), within)
}

func TestSession_DisconnectAbortsWithinBound(t *testing.T) {
	tb := newTable(t, Options{
		Rules:  shortTrack,
		Roller: script(6),
	})
	tb.expectStart(t)
	tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))

	tb.clients[0].Close()

	res := tb.waitDone(t)
	assert.Equal(t, OutcomeAborted, res.Outcome)
	assert.Contains(t, res.Reason, "red")

	for _, c := range tb.clients[1:] {
		rest := c.WaitClosed(t, within)
		assert.Equal(t, []string{protocol.Abort(engine.ColorRed)}, rest)
	}
}

func TestSession_ShutdownReleasesParticipants(t *testing.T) {
	tb := newTable(t, Options{
		Rules:  shortTrack,
		Roller: script(6),
	})
	tb.expectStart(t)
	tb.expectAll(t, protocol.Turn(engine.ColorRed, 6))

	tb.s.Inbox() <- Shutdown{}

	res := tb.waitDone(t)
	assert.Equal(t, OutcomeAborted, res.Outcome)
	for _, c := range tb.clients {
		c.WaitClosed(t, within)
	}
}

func TestSession_TurnOrderCyclesThroughColors(t *testing.T) {
	tb := newTable(t, Options{
		Rules:     shortTrack,
		TurnPause: 5 * time.Millisecond,
		Roller:    script(1, 1, 1, 1, 1, 1, 1, 1),
	})
	blue := tb.clients[1]
	tb.expectStart(t)

	for round := 0; round < 2; round++ {
		for _, color := range engine.SeatOrder {
			blue.Expect(t, protocol.Turn(color, 1), within)
		}
	}
	tb.cancel()
	tb.waitDone(t)
}

func TestSession_StalledSeatDoesNotBlockOthers(t *testing.T) {
	players := make([]*participant.Participant, engine.NumSeats)
	clients := make([]*transporttest.Client, engine.NumSeats)

	// Red's peer never reads, so every write to it stalls
	server, stalled := net.Pipe()
	t.Cleanup(func() { _ = stalled.Close(); _ = server.Close() })
	players[0] = participant.New(transport.NewLineConn(server), zap.NewNop())
	for i := 1; i < engine.NumSeats; i++ {
		conn, client := transporttest.Pipe(t)
		players[i] = participant.New(conn, zap.NewNop())
		clients[i] = client
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	s, err := New(ctx, players, Options{
		Rules:     shortTrack,
		TurnPause: 2 * time.Millisecond,
		Roller:    script(1),
	}, zap.NewNop())
	require.NoError(t, err)

	for seat, c := range clients[1:] {
		c.Expect(t, protocol.StartGame, 200*time.Millisecond)
		c.Expect(t, protocol.Color(engine.SeatOrder[seat+1]), 200*time.Millisecond)
		c.Expect(t, protocol.Turn(engine.ColorRed, 1), 200*time.Millisecond)
	}

	// Red is dropped once its outbox fills or a write times out
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatalf("session kept running with a stalled seat")
	}
	res := s.Result()
	assert.Equal(t, OutcomeAborted, res.Outcome)
	assert.Contains(t, res.Reason, "red")
}
