package engine

// Piece is one token. Pos 0 is home, Rules.TrackLength is done.
type Piece struct {
	Pos int
}

func (p Piece) Home() bool {
	return p.Pos == 0
}

func (p Piece) Done(r Rules) bool {
	return p.Pos == r.TrackLength
}

// Legal reports whether the piece may move d cells. A done piece can never
// move again since any d > 0 overshoots the track.
func (p Piece) Legal(r Rules, d int) bool {
	if d < 1 || d > r.DieFaces {
		return false
	}
	if p.Home() && d != r.ExitFace {
		return false
	}
	if p.Pos+d > r.TrackLength {
		return false
	}
	return true
}

// Advance returns the moved piece, or the unchanged piece and ErrIllegalMove.
// Moves past the end are rejected, never clamped.
func (p Piece) Advance(r Rules, d int) (Piece, error) {
	if !p.Legal(r, d) {
		return p, ErrIllegalMove
	}
	return Piece{Pos: p.Pos + d}, nil
}
