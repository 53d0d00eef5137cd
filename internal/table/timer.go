package table

import (
	"time"

	"holdem-arena/holdem"
)

// turnTimer is the table's only turn timer. Every re-arm stops the
// previous timer and bumps seq, so a fire that raced the stop is ignored.
type turnTimer struct {
	timer    *time.Timer
	seq      uint64
	seat     int
	started  time.Time
	deadline time.Time
	timebank bool
}

func nowPlus(d time.Duration) time.Time {
	return time.Now().Add(d)
}

func (t *Table) promptTurn(seat int) {
	t.armTurnTimer(seat, t.cfg.TurnTimeout, false)
	t.publish(TurnChanged{Seat: seat, Actions: t.engine.Actions(seat), Deadline: t.turn.deadline})
}

func (t *Table) armTurnTimer(seat int, d time.Duration, timebank bool) {
	started := t.turn.started
	t.stopTurnTimer()
	seq := t.turn.seq
	now := time.Now()
	if !timebank {
		started = now
	}
	t.turn.seat = seat
	t.turn.started = started
	t.turn.deadline = now.Add(d)
	t.turn.timebank = timebank
	t.turn.timer = time.AfterFunc(d, func() {
		t.post(Event{Type: eventTimeout, seq: seq})
	})
}

func (t *Table) stopTurnTimer() {
	if t.turn.timer != nil {
		t.turn.timer.Stop()
		t.turn.timer = nil
	}
	t.turn.seq++
	t.turn.seat = holdem.NoSeat
	t.turn.timebank = false
}

// handleTimeout spends the seat's timebank once, then checks if it can
// and folds otherwise.
func (t *Table) handleTimeout(seq uint64) {
	if seq != t.turn.seq || !t.handInProgress {
		return
	}
	seat := t.turn.seat
	if seat == holdem.NoSeat || t.engine.Turn() != seat {
		return
	}
	a := &t.accounts[seat]
	if !t.turn.timebank && a.TimeBank > 0 {
		bank := a.TimeBank
		a.TimeBank = 0
		t.armTurnTimer(seat, bank, true)
		t.publish(TurnChanged{Seat: seat, Actions: t.engine.Actions(seat), Deadline: t.turn.deadline, Timebank: true})
		return
	}

	action := holdem.ActionFold
	if t.engine.Actions(seat).Has(holdem.ActionCheck) {
		action = holdem.ActionCheck
	}
	t.log.Infof("table %s: seat %d timed out -> %s", t.cfg.ID, seat, action)
	if err := t.applyAction(seat, action, 0, true); err != nil {
		t.log.Errorf("table %s: timeout %s for seat %d failed: %v", t.cfg.ID, action, seat, err)
	}
}

// earnTimebank credits a seat that acted within the fast-act threshold.
func (t *Table) earnTimebank(seat int, auto bool) {
	tb := t.cfg.Timebank
	if auto || tb.Earn <= 0 || tb.FastAct <= 0 || t.turn.seat != seat || t.turn.timebank {
		return
	}
	if time.Since(t.turn.started) > tb.FastAct {
		return
	}
	a := &t.accounts[seat]
	a.TimeBank += tb.Earn
	if tb.Cap > 0 && a.TimeBank > tb.Cap {
		a.TimeBank = tb.Cap
	}
}
