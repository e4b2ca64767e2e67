package engine

type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// SeatOrder is both the color assignment by join order and the turn order.
var SeatOrder = [NumSeats]Color{
	ColorRed,
	ColorBlue,
	ColorYellow,
	ColorGreen,
}

func NextSeat(seat int) int {
	return (seat + 1) % NumSeats
}

func SeatColor(seat int) Color {
	if seat < 0 || seat >= NumSeats {
		return ""
	}
	return SeatOrder[seat]
}
