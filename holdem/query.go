package holdem

import "holdem-arena/card"

func (e *Engine) Street() Street {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.street
}

func (e *Engine) Turn() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.turn
}

func (e *Engine) Round() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.round
}

func (e *Engine) Pot() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.pot
}

func (e *Engine) MinBet() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.minBet
}

func (e *Engine) LegalRaise() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.legalRaise
}

func (e *Engine) Dealer() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.dealer
}

// Aggressor is the last seat to raise on the current (or final) street.
func (e *Engine) Aggressor() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.aggressor
}

func (e *Engine) Board() []card.Card {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneCards(e.board)
}

// Remaining is the undealt deck.
func (e *Engine) Remaining() []card.Card {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneCards(e.deck)
}

func (e *Engine) Seat(seat int) (HandContext, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.validSeat(seat) || !e.seats[seat].Playing {
		return HandContext{}, false
	}
	return e.seats[seat].clone(), true
}

// MarkDead flags a seat's hole cards as unable to win.
func (e *Engine) MarkDead(seat int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.validSeat(seat) {
		e.seats[seat].DeadCard = true
	}
}

// Contenders lists live seats in seat order.
func (e *Engine) Contenders() []int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	var out []int
	for i := range e.seats {
		if e.seats[i].Live() {
			out = append(out, i)
		}
	}
	return out
}

// ActionLog returns a copy of the hand's action log.
func (e *Engine) ActionLog() []ActionRecord {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]ActionRecord, len(e.actions))
	copy(out, e.actions)
	return out
}

// CountActions counts log entries of kind on the current street.
func (e *Engine) CountActions(kind ActionType) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	n := 0
	for _, a := range e.actions {
		if a.Street == e.street && a.Action == kind {
			n++
		}
	}
	return n
}
