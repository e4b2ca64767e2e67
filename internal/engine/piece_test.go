package engine

import (
	"errors"
	"testing"
)

func TestPieceLegality(t *testing.T) {
	rules := Rules{TrackLength: 57, DieFaces: 6, ExitFace: 6}

	cases := []struct {
		name    string
		pos     int
		die     int
		legal   bool
		wantPos int
	}{
		{name: "home needs exit face", pos: 0, die: 4, legal: false, wantPos: 0},
		{name: "exit face leaves home", pos: 0, die: 6, legal: true, wantPos: 6},
		{name: "overshoot is rejected", pos: 55, die: 4, legal: false, wantPos: 55},
		{name: "exact finish", pos: 55, die: 2, legal: true, wantPos: 57},
		{name: "done piece cannot move", pos: 57, die: 1, legal: false, wantPos: 57},
		{name: "on track any face", pos: 10, die: 3, legal: true, wantPos: 13},
		{name: "zero die", pos: 10, die: 0, legal: false, wantPos: 10},
		{name: "die above faces", pos: 10, die: 7, legal: false, wantPos: 10},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := Piece{Pos: tc.pos}
			if got := p.Legal(rules, tc.die); got != tc.legal {
				t.Fatalf("Legal(%d, %d): got %v, want %v", tc.pos, tc.die, got, tc.legal)
			}

			moved, err := p.Advance(rules, tc.die)
			if tc.legal && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !tc.legal && !errors.Is(err, ErrIllegalMove) {
				t.Fatalf("want ErrIllegalMove, got %v", err)
			}
			if moved.Pos != tc.wantPos {
				t.Fatalf("position: got %d, want %d", moved.Pos, tc.wantPos)
			}
			if p.Pos != tc.pos {
				t.Fatalf("receiver mutated: %d", p.Pos)
			}
		})
	}
}

func TestPieceDone(t *testing.T) {
	rules := DefaultRules()
	p, err := Piece{Pos: 55}.Advance(rules, 2)
	if err != nil {
		t.Fatalf("unexpected err %v", err)
	}
	if !p.Done(rules) {
		t.Fatalf("piece at %d should be done", p.Pos)
	}
	if p.Home() {
		t.Fatalf("done piece reported home")
	}
}

func TestPiecePositionStaysInBounds(t *testing.T) {
	rules := Rules{TrackLength: 20, DieFaces: 6, ExitFace: 6}

	for start := 0; start <= rules.TrackLength; start++ {
		for die := 1; die <= rules.DieFaces; die++ {
			p := Piece{Pos: start}
			first := p.Legal(rules, die)
			if second := p.Legal(rules, die); first != second {
				t.Fatalf("Legal not deterministic at pos=%d die=%d", start, die)
			}

			moved, _ := p.Advance(rules, die)
			if moved.Pos < 0 || moved.Pos > rules.TrackLength {
				t.Fatalf("pos %d out of bounds after die %d from %d", moved.Pos, die, start)
			}
			if !first && moved.Pos != start {
				t.Fatalf("illegal move changed position %d -> %d", start, moved.Pos)
			}
		}
	}
}
