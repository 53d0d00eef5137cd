package holdem

import "holdem-arena/card"

type Snapshot struct {
	Round  uint64
	Street Street

	Dealer int
	SB     int
	BB     int
	Turn   int

	Pot        int64
	StreetPot  int64
	MinBet     int64
	LegalRaise int64
	SmallBlind int64
	BigBlind   int64
	Aggressor  int

	Board []card.Card
	Pots  []Pot
	Seats []HandContext
}

// Snapshot copies the hand state. Hole cards are included; filtering them
// per viewer is the presentation layer's job.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()

	s := Snapshot{
		Round:      e.round,
		Street:     e.street,
		Dealer:     e.dealer,
		SB:         e.sb,
		BB:         e.bb,
		Turn:       e.turn,
		Pot:        e.pot,
		StreetPot:  e.streetPot,
		MinBet:     e.minBet,
		LegalRaise: e.legalRaise,
		SmallBlind: e.smallBlind,
		BigBlind:   e.bigBlind,
		Aggressor:  e.aggressor,
		Board:      cloneCards(e.board),
		Pots:       e.calculatePots(true),
	}
	for i := range e.seats {
		if e.seats[i].Playing {
			s.Seats = append(s.Seats, e.seats[i].clone())
		}
	}
	return s
}

func (s Snapshot) Seat(seat int) (HandContext, bool) {
	for _, h := range s.Seats {
		if h.Seat == seat {
			return h, true
		}
	}
	return HandContext{}, false
}
