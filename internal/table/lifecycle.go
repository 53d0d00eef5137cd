package table

import (
	"context"
	"errors"
	"fmt"
	"time"

	"holdem-arena/holdem"
)

const ledgerCallTimeout = 30 * time.Second

// ledgerLoop runs ledger jobs one at a time in submission order, so two
// calls touching the same seat never overlap. It drains what is queued
// when the table stops.
func (t *Table) ledgerLoop() {
	for job := range t.jobs {
		ctx, cancel := context.WithTimeout(context.Background(), ledgerCallTimeout)
		job(ctx)
		cancel()
	}
}

func (t *Table) enqueue(job func(ctx context.Context)) {
	if t.closed {
		t.log.Warnf("table %s: ledger job dropped after close", t.cfg.ID)
		return
	}
	t.jobs <- job
}

func (t *Table) handleSitDown(userID string, seat int, buyIn int64) error {
	a := t.account(seat)
	if a == nil {
		return fmt.Errorf("%w: %d", ErrInvalidSeat, seat)
	}
	if userID == "" {
		return fmt.Errorf("user id required")
	}
	if a.occupied() {
		return fmt.Errorf("%w: %d", ErrSeatTaken, seat)
	}
	for i := range t.accounts {
		if t.accounts[i].occupied() && t.accounts[i].UserID == userID {
			return fmt.Errorf("%w: seat %d", ErrAlreadySeated, i)
		}
	}
	if t.closing {
		return ErrTableClosed
	}
	if buyIn < t.cfg.MinBuyIn || buyIn > t.cfg.MaxBuyIn {
		return fmt.Errorf("%w: %d (range: %d-%d)", ErrInvalidBuyIn, buyIn, t.cfg.MinBuyIn, t.cfg.MaxBuyIn)
	}

	a.UserID = userID
	a.State = SeatJoining
	a.TimeBank = t.cfg.Timebank.Initial
	t.seatChanged(a)

	tableID := t.cfg.ID
	t.enqueue(func(ctx context.Context) {
		err := func() error {
			if _, err := t.cfg.Ledger.GetUser(ctx, userID); err != nil {
				return err
			}
			return t.cfg.Ledger.Deposit(ctx, tableID, userID, buyIn)
		}()
		t.post(Event{Type: eventDeposited, Seat: seat, UserID: userID, Amount: buyIn, err: err})
	})
	return nil
}

func (t *Table) handleDeposited(seat int, userID string, amount int64, err error) {
	a := t.account(seat)
	if a == nil || a.State != SeatJoining || a.UserID != userID {
		t.log.Warnf("table %s: stale deposit for seat %d user %s", t.cfg.ID, seat, userID)
		if err == nil {
			t.refund(userID, amount)
		}
		return
	}
	if err != nil {
		t.log.Warnf("table %s: sit-down of %s at seat %d refused: %v", t.cfg.ID, userID, seat, err)
		a.clear()
		t.seatChanged(a)
		return
	}
	a.Money = amount
	a.State = SeatWaiting
	t.log.Infof("table %s: %s sat down at seat %d with %d", t.cfg.ID, userID, seat, amount)
	t.seatChanged(a)
	t.dealSoon(t.cfg.HandDelay)
}

func (t *Table) handleBuyIn(seat int, amount int64) error {
	a := t.account(seat)
	if a == nil || !a.occupied() || a.State == SeatJoining || a.State == SeatEliminated {
		return ErrSeatNotPlaying
	}
	if amount <= 0 || a.Money+a.PendingBuyIn+amount > t.cfg.MaxBuyIn {
		return fmt.Errorf("%w: %d", ErrInvalidBuyIn, amount)
	}
	userID, tableID := a.UserID, t.cfg.ID
	t.enqueue(func(ctx context.Context) {
		err := t.cfg.Ledger.Deposit(ctx, tableID, userID, amount)
		t.post(Event{Type: eventBoughtIn, Seat: seat, UserID: userID, Amount: amount, err: err})
	})
	return nil
}

func (t *Table) handleBoughtIn(seat int, userID string, amount int64, err error) {
	a := t.account(seat)
	if a == nil || a.UserID != userID {
		// the seat was vacated while the deposit was in flight
		if err == nil {
			t.refund(userID, amount)
		}
		return
	}
	if err != nil {
		t.log.Warnf("table %s: buy-in of %d for seat %d failed: %v", t.cfg.ID, amount, seat, err)
		return
	}
	a.PendingBuyIn += amount
	if !t.handInProgress {
		t.applyPendingBuyIns()
	}
	t.dealSoon(t.cfg.HandDelay)
}

// applyPendingBuyIns moves confirmed top-ups onto the stacks. It only runs
// between hands.
func (t *Table) applyPendingBuyIns() {
	for i := range t.accounts {
		a := &t.accounts[i]
		if a.PendingBuyIn == 0 {
			continue
		}
		a.Money += a.PendingBuyIn
		a.PendingBuyIn = 0
		t.seatChanged(a)
	}
}

func (t *Table) handleSitOut(seat int) error {
	a := t.account(seat)
	if a == nil || (a.State != SeatWaiting && a.State != SeatPlaying) {
		return ErrSeatNotPlaying
	}
	if _, ok := t.engine.Seat(seat); ok && t.handInProgress {
		a.sitOutPending = true
		return nil
	}
	a.State = SeatSittingOut
	t.seatChanged(a)
	return nil
}

func (t *Table) handleSitIn(seat int) error {
	a := t.account(seat)
	if a != nil && a.sitOutPending {
		a.sitOutPending = false
		return nil
	}
	if a == nil || a.State != SeatSittingOut {
		return ErrSeatNotPlaying
	}
	if a.Money+a.PendingBuyIn <= 0 {
		return fmt.Errorf("%w: buy in first", ErrInvalidBuyIn)
	}
	a.State = SeatWaiting
	t.seatChanged(a)
	t.dealSoon(t.cfg.HandDelay)
	return nil
}

// handleStandUp leaves now when the seat is not in the hand. A live seat
// is marked leaving: on turn it folds at once, otherwise it folds when the
// turn reaches it, and the chips go back after the hand.
func (t *Table) handleStandUp(seat int) error {
	a := t.account(seat)
	if a == nil || !a.occupied() {
		return ErrSeatNotPlaying
	}
	if a.State == SeatJoining {
		// a deposit still in flight is refunded when its result arrives
		a.clear()
		t.seatChanged(a)
		return nil
	}
	h, inHand := t.engine.Seat(seat)
	if !t.handInProgress || !inHand {
		t.releaseSeat(a)
		return nil
	}
	a.Leaving = true
	if h.CanAct() && t.engine.Turn() == seat {
		if err := t.applyAction(seat, holdem.ActionFold, 0, true); err != nil && !errors.Is(err, holdem.ErrHandEnded) {
			return err
		}
	}
	return nil
}

func (t *Table) refund(userID string, amount int64) {
	tableID := t.cfg.ID
	t.enqueue(func(ctx context.Context) {
		if err := t.cfg.Ledger.Leave(ctx, tableID, userID, amount); err != nil {
			t.log.Errorf("table %s: refund of %d to %s failed: %v", tableID, amount, userID, err)
		}
	})
}

// releaseSeat returns the seat's chips to the ledger and empties it.
func (t *Table) releaseSeat(a *SeatAccount) {
	userID, amount, tableID := a.UserID, a.Money+a.PendingBuyIn, t.cfg.ID
	t.enqueue(func(ctx context.Context) {
		if err := t.cfg.Ledger.Leave(ctx, tableID, userID, amount); err != nil {
			t.log.Errorf("table %s: leave for %s (%d) failed: %v", tableID, userID, amount, err)
		}
	})
	t.log.Infof("table %s: %s left seat %d with %d", t.cfg.ID, userID, a.Index, amount)
	a.clear()
	t.seatChanged(a)
}

func (t *Table) handleTip(seat int, amount int64) error {
	a := t.account(seat)
	if a == nil || !a.occupied() {
		return ErrSeatNotPlaying
	}
	if !t.handInProgress {
		return ErrNoHand
	}
	if _, ok := t.engine.Seat(seat); !ok {
		return ErrSeatNotPlaying
	}
	if amount <= 0 || t.tips[seat]+amount > a.Money {
		return fmt.Errorf("%w: tip %d", ErrInvalidAmount, amount)
	}
	t.tips[seat] += amount
	return nil
}

func (t *Table) handleClose() {
	t.closing = true
	t.nextHandAt = time.Time{}
	if t.handInProgress || t.awaitingSettlement {
		return
	}
	t.teardown()
}

// teardown stands every seat up and stops the actor.
func (t *Table) teardown() {
	t.cleanupSidebets()
	for i := range t.accounts {
		a := &t.accounts[i]
		if a.occupied() && a.State != SeatJoining {
			t.releaseSeat(a)
		}
	}
	t.log.Infof("table %s torn down", t.cfg.ID)
	t.stopLocked()
}
