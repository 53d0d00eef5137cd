package table

import (
	"time"

	"holdem-arena/card"
	"holdem-arena/holdem"
)

// TableStatus is a point-in-time view of the table.
type TableStatus struct {
	ID                 string
	Kind               Kind
	Street             holdem.Street
	HandID             string
	Round              uint64
	Pot                int64
	Board              []card.Card
	Turn               int
	Dealer             int
	Seats              []SeatAccount
	HandInProgress     bool
	AwaitingSettlement bool
	Frozen             bool
	Paused             bool
	Closing            bool
}

// TurnContext is what the seat on turn may do and until when.
type TurnContext struct {
	Seat     int
	Actions  holdem.ActionSet
	Deadline time.Time
	Timebank bool
	Pot      int64
}

// query runs fn on the actor.
func query[T any](t *Table, fn func() T) (T, error) {
	var out T
	err := t.SubmitEvent(Event{Type: eventQuery, query: func() { out = fn() }})
	return out, err
}

func (t *Table) Status() (TableStatus, error) {
	return query(t, func() TableStatus {
		st := TableStatus{
			ID:                 t.cfg.ID,
			Kind:               t.cfg.Variant.Kind,
			Turn:               holdem.NoSeat,
			Dealer:             t.dealer,
			Seats:              append([]SeatAccount(nil), t.accounts...),
			HandInProgress:     t.handInProgress,
			AwaitingSettlement: t.awaitingSettlement,
			Frozen:             t.frozen,
			Paused:             t.paused,
			Closing:            t.closing,
		}
		if t.handID != "" {
			st.HandID = t.handID
			st.Street = t.engine.Street()
			st.Round = t.engine.Round()
			st.Pot = t.engine.Pot()
			st.Board = t.engine.Board()
			st.Turn = t.engine.Turn()
		}
		return st
	})
}

// TurnContext reports the open decision; ok is false between turns.
func (t *Table) TurnContext() (tc TurnContext, ok bool, err error) {
	type res struct {
		tc TurnContext
		ok bool
	}
	r, err := query(t, func() res {
		seat := t.turn.seat
		if !t.handInProgress || seat == holdem.NoSeat || t.engine.Turn() != seat {
			return res{}
		}
		return res{ok: true, tc: TurnContext{
			Seat:     seat,
			Actions:  t.engine.Actions(seat),
			Deadline: t.turn.deadline,
			Timebank: t.turn.timebank,
			Pot:      t.engine.Pot(),
		}}
	})
	return r.tc, r.ok, err
}

// SidePots lists the pots as they stand, uncalled bets included.
func (t *Table) SidePots() ([]holdem.Pot, error) {
	return query(t, func() []holdem.Pot {
		if !t.handInProgress {
			return nil
		}
		return t.engine.CalculatePots(true)
	})
}

// HandResult returns the last settled hand, or nil.
func (t *Table) HandResult() (*HandResult, error) {
	return query(t, func() *HandResult { return t.lastResult })
}

func (t *Table) Alerts() ([]Alert, error) {
	return query(t, func() []Alert { return append([]Alert(nil), t.alerts...) })
}

// ActivePlayers counts seats that can still be dealt in.
func (t *Table) ActivePlayers() (int, error) {
	return query(t, func() int {
		n := 0
		for i := range t.accounts {
			a := &t.accounts[i]
			if a.occupied() && a.State != SeatJoining && a.State != SeatEliminated && a.Money+a.PendingBuyIn > 0 {
				n++
			}
		}
		return n
	})
}
