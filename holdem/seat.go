package holdem

import "holdem-arena/card"

// HandContext is the per-hand state of one seat. It is rebuilt at every
// hand start and never outlives the hand; the persistent account lives with
// the table and is joined by Seat.
type HandContext struct {
	Seat    int
	Playing bool
	// Stack is the working stack for this hand.
	Stack int64
	Hole  []card.Card
	// Bet is the amount put in on the current street.
	Bet int64
	// TotalBet is every street's bets, without antes or dead money.
	TotalBet   int64
	Ante       int64
	Dead       int64
	LastAction ActionType
	LastBet    int64
	Folded     bool
	AllIn      bool
	// DeadCard is set once the hole cards can no longer win (muck, killed hand).
	DeadCard bool
}

func (h *HandContext) reset(seat int) {
	*h = HandContext{Seat: seat}
}

// Live reports whether the seat still contends for the pot.
func (h *HandContext) Live() bool {
	return h.Playing && !h.Folded
}

// CanAct reports whether the seat still has decisions to make.
func (h *HandContext) CanAct() bool {
	return h.Live() && !h.AllIn
}

// Contribution is everything the seat has put in this hand.
func (h *HandContext) Contribution() int64 {
	return h.Ante + h.Dead + h.TotalBet
}

func (h HandContext) clone() HandContext {
	h.Hole = cloneCards(h.Hole)
	return h
}
