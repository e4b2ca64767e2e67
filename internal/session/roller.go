package session

import "math/rand/v2"

type Roller interface {
	Roll(faces int) int
}

type RollerFunc func(faces int) int

func (f RollerFunc) Roll(faces int) int { return f(faces) }

// RandomRoller rolls uniformly in [1, faces].
type RandomRoller struct{}

func (RandomRoller) Roll(faces int) int { return rand.IntN(faces) + 1 }
