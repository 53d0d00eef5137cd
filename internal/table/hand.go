package table

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"holdem-arena/holdem"
	"holdem-arena/internal/await"
	"holdem-arena/internal/shuffle"
)

// scheduleNewHand deals the next hand if every guard allows it.
func (t *Table) scheduleNewHand() error {
	switch {
	case t.closed || t.closing:
		return ErrTableClosed
	case t.handInProgress:
		return ErrHandInProgress
	case t.frozen:
		return ErrFrozen
	case t.pendingErrorReport || t.awaitingSettlement:
		return ErrAwaitingSettlement
	case t.paused:
		return ErrPaused
	}
	t.applyPendingBuyIns()

	level, ok := t.cfg.Variant.Blinds.Current()
	if !ok {
		return ErrOnBreak
	}
	eligible := t.dealableSeats()
	if len(eligible) < 2 {
		t.cleanupSidebets()
		return ErrNotEnoughPlayers
	}

	var (
		seed       [32]byte
		transcript *shuffle.Transcript
	)
	if t.cfg.ShuffleCommit && len(eligible) >= t.cfg.ShuffleMinPlayers {
		defer func() {
			if !t.handInProgress {
				t.returnHandshakeSeats()
			}
		}()
		tr, err := t.runHandshake(eligible)
		if err != nil {
			return err
		}
		transcript = &tr
		seed = shuffle.Seed(tr)
	} else {
		secret, err := shuffle.NewSecret()
		if err != nil {
			return err
		}
		copy(seed[:], secret)
	}

	chargeMissed := t.cfg.Variant.EndOfHand.ChargeMissedBlinds()
	asg, err := t.cfg.Variant.Rotation.Assign(t.dealer, t.accounts, level, chargeMissed)
	if err != nil {
		t.cleanupSidebets()
		if errors.Is(err, ErrNotEnoughPlayers) {
			return ErrNotEnoughPlayers
		}
		return err
	}

	entries := make([]holdem.SeatEntry, 0, len(asg.Seats))
	for _, seat := range asg.Seats {
		entries = append(entries, holdem.SeatEntry{
			Seat:  seat,
			Stack: t.accounts[seat].Money,
			Ante:  asg.Level.Ante,
			Dead:  asg.Dead[seat],
		})
	}
	blinds := holdem.Blinds{Small: asg.Level.Small, Big: asg.Level.Big, Dealer: asg.Dealer, SB: asg.SB, BB: asg.BB}
	if err := t.engine.Start(entries, blinds, t.deck(seed)); err != nil {
		return fmt.Errorf("start hand: %w", err)
	}

	t.dealer = asg.Dealer
	t.handID = uuid.NewString()
	t.handInProgress = true
	t.handLog = nil
	t.insurance = nil
	t.transcript = transcript
	t.startStack = make(map[int]int64, len(asg.Seats))
	t.tips = make(map[int]int64)
	for _, seat := range asg.Seats {
		a := &t.accounts[seat]
		t.startStack[seat] = a.Money
		a.State = SeatPlaying
		a.MissedBlind = false
	}
	if chargeMissed {
		for i := range t.accounts {
			if a := &t.accounts[i]; a.State == SeatSittingOut && !a.handshakeOut && a.Money > 0 {
				a.MissedBlind = true
			}
		}
	}

	snap := t.engine.Snapshot()
	t.log.Infof("table %s: hand %s (#%d) started, dealer=%d sb=%d bb=%d blinds=%d/%d ante=%d",
		t.cfg.ID, t.handID, snap.Round, snap.Dealer, snap.SB, snap.BB, asg.Level.Small, asg.Level.Big, asg.Level.Ante)
	t.publish(HandStarted{
		HandID:     t.handID,
		Round:      snap.Round,
		Dealer:     snap.Dealer,
		SB:         snap.SB,
		BB:         snap.BB,
		SmallBlind: asg.Level.Small,
		BigBlind:   asg.Level.Big,
		Ante:       asg.Level.Ante,
		Seats:      asg.Seats,
	})
	t.openSidebetWindow(holdem.StreetPreFlop)
	t.continueHand()
	return nil
}

func (t *Table) dealableSeats() []int {
	var out []int
	for i := range t.accounts {
		if t.accounts[i].dealable() {
			out = append(out, i)
		}
	}
	return out
}

func replyOf(kind ReplyKind) func(Reply) bool {
	return func(r Reply) bool { return r.Kind == kind }
}

// runHandshake runs commit then reveal among seats. A seat that misses a
// deadline or reveals a secret that does not open its commitment sits out;
// the rest carry on.
func (t *Table) runHandshake(seats []int) (shuffle.Transcript, error) {
	round, err := shuffle.NewRound(seats)
	if err != nil {
		return shuffle.Transcript{}, err
	}
	await.Drain(t.replies)

	timeout := t.cfg.HandshakeTimeout
	t.publish(ShuffleCommitRequest{Seats: round.Participants(), Deadline: nowPlus(timeout)})
	commits := await.CollectIf(t.ctx, t.replies, round.Participants(), timeout, replyOf(ReplyCommit))
	for seat, r := range commits.Got {
		if err := round.SubmitHash(seat, r.Data); err != nil {
			t.log.Warnf("table %s: commitment from seat %d rejected: %v", t.cfg.ID, seat, err)
		}
	}
	dropped, hashes := round.CloseCommit()
	t.sitOut(dropped, "no shuffle commitment")

	t.publish(ShuffleRevealRequest{Hashes: hashes, Deadline: nowPlus(timeout)})
	reveals := await.CollectIf(t.ctx, t.replies, round.Participants(), timeout, replyOf(ReplyReveal))
	for seat, r := range reveals.Got {
		if err := round.SubmitSecret(seat, r.Data); err != nil {
			t.log.Warnf("table %s: secret from seat %d rejected: %v", t.cfg.ID, seat, err)
		}
	}
	timedOut, flagged := round.CloseReveal()
	t.sitOut(timedOut, "no shuffle reveal")
	t.sitOut(flagged, "shuffle secret mismatch")
	if len(flagged) > 0 {
		t.raiseAlert(AlertShuffleMismatch, "seats %v revealed secrets not matching their commitments", flagged)
	}
	return round.Transcript(), nil
}

func (t *Table) sitOut(seats []int, reason string) {
	for _, seat := range seats {
		a := t.account(seat)
		if a == nil {
			continue
		}
		t.log.Warnf("table %s: seat %d sits out: %s", t.cfg.ID, seat, reason)
		a.State = SeatSittingOut
		a.handshakeOut = true
		t.seatChanged(a)
	}
}

// returnHandshakeSeats deals back in the seats a handshake benched. They
// sit out one hand only and owe no missed blind for it.
func (t *Table) returnHandshakeSeats() {
	for i := range t.accounts {
		a := &t.accounts[i]
		if !a.handshakeOut {
			continue
		}
		a.handshakeOut = false
		if a.occupied() && a.State == SeatSittingOut {
			a.State = SeatWaiting
			t.seatChanged(a)
		}
	}
}

func (t *Table) handleAction(seat int, action holdem.ActionType, amount int64) error {
	if !t.handInProgress {
		return ErrNoHand
	}
	a := t.account(seat)
	h, ok := t.engine.Seat(seat)
	if a == nil || !a.occupied() || !ok || !h.CanAct() {
		return ErrSeatNotPlaying
	}
	if t.engine.Turn() != seat {
		return ErrNotYourTurn
	}
	return t.applyAction(seat, action, amount, false)
}

// applyAction hands the decision to the engine. A rejected action changes
// nothing and the turn stays where it is.
func (t *Table) applyAction(seat int, action holdem.ActionType, amount int64, auto bool) error {
	if err := t.engine.Bet(seat, amount, action); err != nil {
		t.publish(ActionRejected{Seat: seat, Action: action, Amount: amount, Reason: err.Error()})
		return err
	}
	t.earnTimebank(seat, auto)
	t.stopTurnTimer()

	actions := t.engine.ActionLog()
	rec := actions[len(actions)-1]
	t.handLog = append(t.handLog, fmt.Sprintf("%s seat=%d %s %d", rec.Street, seat, rec.Action, rec.Amount))
	t.log.Debugf("table %s: seat %d %s %d (to %d)", t.cfg.ID, seat, rec.Action, rec.Amount, rec.BetTo)
	t.publish(ActionApplied{Seat: seat, Action: rec.Action, Amount: rec.Amount, BetTo: rec.BetTo, Pot: t.engine.Pot(), Auto: auto})

	t.evaluateInsurance()
	t.advance()
	return nil
}

// advance settles the street after an action, then finds the next turn.
func (t *Table) advance() {
	if t.engine.CheckState() {
		if t.streetChanged() {
			return
		}
	} else {
		t.engine.NextTurn()
	}
	t.continueHand()
}

// continueHand prompts whoever is on turn, running the board out while no
// one is.
func (t *Table) continueHand() {
	for t.handInProgress {
		if seat := t.engine.Turn(); seat != holdem.NoSeat {
			if t.accounts[seat].Leaving {
				if err := t.applyAction(seat, holdem.ActionFold, 0, true); err != nil {
					t.log.Errorf("table %s: fold for leaving seat %d failed: %v", t.cfg.ID, seat, err)
				}
				return
			}
			t.promptTurn(seat)
			return
		}
		if !t.engine.CheckState() {
			if t.engine.NextTurn() == holdem.NoSeat {
				t.log.Errorf("table %s: street %s open with no seat to act", t.cfg.ID, t.engine.Street())
				return
			}
			continue
		}
		if t.streetChanged() {
			return
		}
	}
}

// streetChanged announces a new street, or finishes the hand at showdown.
func (t *Table) streetChanged() (finished bool) {
	street := t.engine.Street()
	if street == holdem.StreetShowdown {
		t.finishHand()
		return true
	}
	t.publish(StateChanged{Street: street, Board: t.engine.Board()})
	t.openSidebetWindow(street)
	return false
}
