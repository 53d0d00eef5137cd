package holdem

import "holdem-arena/card"

// NoSeat marks an undefined seat pointer (turn, blinds, aggressor).
const NoSeat = -1

// Street is one betting phase of a hand.
type Street byte

const (
	StreetNone Street = iota
	StreetPreFlop
	StreetFlop
	StreetTurn
	StreetRiver
	StreetShowdown
)

var streetNames = map[Street]string{
	StreetNone:     "none",
	StreetPreFlop:  "preflop",
	StreetFlop:     "flop",
	StreetTurn:     "turn",
	StreetRiver:    "river",
	StreetShowdown: "showdown",
}

func (s Street) String() string {
	if n, ok := streetNames[s]; ok {
		return n
	}
	return "unknown"
}

// Betting reports whether players can still act on the street.
func (s Street) Betting() bool {
	return s >= StreetPreFlop && s <= StreetRiver
}

// ActionType is a player decision, or a forced post.
type ActionType byte

const (
	ActionNone ActionType = iota
	ActionCheck
	ActionBet
	ActionCall
	ActionRaise
	ActionFold
	ActionAllIn
	ActionBlind
	ActionAnte
)

var actionNames = map[ActionType]string{
	ActionNone:  "NONE",
	ActionCheck: "CHECK",
	ActionBet:   "BET",
	ActionCall:  "CALL",
	ActionRaise: "RAISE",
	ActionFold:  "FOLD",
	ActionAllIn: "ALLIN",
	ActionBlind: "BLIND",
	ActionAnte:  "ANTE",
}

func (a ActionType) String() string {
	if n, ok := actionNames[a]; ok {
		return n
	}
	return "UNKNOWN"
}

// Limit selects the raise cap.
type Limit byte

const (
	NoLimit Limit = iota
	PotLimit
)

func (l Limit) String() string {
	if l == PotLimit {
		return "pot-limit"
	}
	return "no-limit"
}

// SeatEntry is what the caller brings to Start for one seat.
type SeatEntry struct {
	Seat  int
	Stack int64
	// Ante is the pending ante posted before cards are dealt.
	Ante int64
	// Dead is a missed-blind surcharge posted as dead money.
	Dead int64
}

// Blinds carries the forced-bet assignment for one hand. SB and BB may be
// NoSeat, in which case they are derived from the dealer.
type Blinds struct {
	Small  int64
	Big    int64
	Dealer int
	SB     int
	BB     int
}

// ActionRecord is one entry of the per-hand action log.
type ActionRecord struct {
	Street Street
	Seat   int
	Action ActionType
	Amount int64
	// BetTo is the seat's street bet after the action.
	BetTo int64
}

// ActionSet is what a seat may do right now. Raise bounds are chips added
// by this action, including the call portion.
type ActionSet struct {
	Actions  []ActionType
	Call     int64
	MinRaise int64
	MaxRaise int64
}

func (s ActionSet) Has(a ActionType) bool {
	for _, x := range s.Actions {
		if x == a {
			return true
		}
	}
	return false
}

// Pot is one layer of the pot and the seats that may win it.
type Pot struct {
	Amount   int64
	Eligible []int
}

func (p Pot) IsEligible(seat int) bool {
	for _, s := range p.Eligible {
		if s == seat {
			return true
		}
	}
	return false
}

func cloneCards(cs []card.Card) []card.Card {
	if cs == nil {
		return nil
	}
	out := make([]card.Card, len(cs))
	copy(out, cs)
	return out
}
