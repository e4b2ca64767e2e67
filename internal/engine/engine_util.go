package engine

func NewState(rules Rules) State {
	return State{
		Phase:  PhaseForming,
		Turn:   0,
		Winner: -1,
		Rules:  rules,
	}
}

// Start moves a forming board into play. Red rolls first.
func Start(s State) ([]Event, State, error) {
	if s.Phase != PhaseForming {
		return nil, s, ErrGameAlreadyStarted
	}
	newState := s
	newState.Phase = PhasePlaying
	newState.Turn = 0
	return []Event{{Type: EvtGameStarted}}, newState, nil
}

func CanMoveAny(s State, seat int, die int) bool {
	for _, piece := range s.Pieces[seat] {
		if piece.Legal(s.Rules, die) {
			return true
		}
	}
	return false
}

func HasWon(s State, seat int) bool {
	for _, piece := range s.Pieces[seat] {
		if !piece.Done(s.Rules) {
			return false
		}
	}
	return true
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
