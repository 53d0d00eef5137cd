package table

import (
	"context"
	"sort"

	"holdem-arena/holdem"
	"holdem-arena/internal/ledger"
)

// finishHand runs the showdown, pays the pots, and hands the round to the
// ledger. Dealing stays blocked until the ledger answers.
func (t *Table) finishHand() {
	t.stopTurnTimer()
	pots := t.engine.CalculatePots(false)
	sd := t.runShowdown(pots)
	board := t.engine.Board()
	contenders := t.engine.Contenders()

	position := make(map[int]int, len(sd.order))
	for i, seat := range sd.order {
		position[seat] = i
	}
	walk := len(board) == 0 && len(contenders) == 1
	rakeLeft := t.cfg.Variant.Rake.Cap

	wins := make(map[int]int64)
	var totalRake int64
	results := make([]PotResult, 0, len(pots))
	for _, p := range pots {
		winners := t.potWinners(p, sd, contenders)
		sort.SliceStable(winners, func(i, j int) bool { return position[winners[i]] < position[winners[j]] })

		rake := int64(0)
		if rp := t.cfg.Variant.Rake; rp.enabled() && !walk && !(rp.SkipUncontested && len(p.Eligible) == 1) {
			rake = p.Amount * rp.BasisPoints / 10000
			if rake > rakeLeft {
				rake = rakeLeft
			}
			rakeLeft -= rake
		}
		totalRake += rake

		pr := PotResult{Amount: p.Amount, Rake: rake, Eligible: p.Eligible, Winners: winners, Shares: make(map[int]int64)}
		if len(winners) > 0 {
			net := p.Amount - rake
			share := net / int64(len(winners))
			for _, w := range winners {
				pr.Shares[w] += share
			}
			pr.Shares[winners[0]] += net - share*int64(len(winners))
			for w, amt := range pr.Shares {
				wins[w] += amt
			}
		} else {
			t.log.Errorf("table %s: pot of %d has no winner (eligible %v)", t.cfg.ID, p.Amount, p.Eligible)
		}
		results = append(results, pr)
	}

	end := make(map[int]int64, len(t.startStack))
	var totalTips, sumStart, sumEnd int64
	players := make([]ledger.RoundPlayer, 0, len(t.startStack))
	seats := make([]int, 0, len(t.startStack))
	for seat := range t.startStack {
		seats = append(seats, seat)
	}
	sort.Ints(seats)
	for _, seat := range seats {
		h, _ := t.engine.Seat(seat)
		stack := h.Stack + wins[seat]
		tip := t.tips[seat]
		if tip > stack {
			tip = stack
		}
		stack -= tip
		end[seat] = stack
		totalTips += tip
		sumStart += t.startStack[seat]
		sumEnd += stack

		a := &t.accounts[seat]
		a.Money = stack
		players = append(players, ledger.RoundPlayer{
			UserID: a.UserID,
			Seat:   seat,
			Start:  t.startStack[seat],
			End:    stack,
			Bet:    h.Contribution(),
			Win:    wins[seat],
			Tip:    tip,
		})
	}

	conserved := sumStart == sumEnd+totalRake+totalTips
	if !conserved {
		t.log.Errorf("table %s: hand %s does not balance: start=%d end=%d rake=%d tips=%d",
			t.cfg.ID, t.handID, sumStart, sumEnd, totalRake, totalTips)
		t.raiseAlert(AlertConservation, "hand %s: start %d != end %d + rake %d + tips %d",
			t.handID, sumStart, sumEnd, totalRake, totalTips)
	}

	round := t.engine.Round()
	result := &HandResult{
		HandID:    t.handID,
		Round:     round,
		Board:     board,
		Pots:      results,
		Rake:      totalRake,
		Tips:      totalTips,
		Reveal:    revealedInOrder(sd),
		Ranks:     sd.ranks,
		Start:     t.startStack,
		End:       end,
		Conserved: conserved,
	}
	t.lastResult = result
	t.log.Infof("table %s: hand %s settled, pot=%d rake=%d tips=%d", t.cfg.ID, t.handID, t.engine.Pot(), totalRake, totalTips)
	t.publish(*result)

	t.settleInsurance(wins)
	t.resolveSidebets()
	if t.transcript != nil {
		t.publish(ShuffleTranscript{HandID: t.handID, Transcript: *t.transcript})
	}

	report := ledger.RoundReport{
		TableID:      t.cfg.ID,
		Round:        int64(round),
		HandID:       t.handID,
		Rake:         totalRake,
		Players:      players,
		Log:          t.handLog,
		TournamentID: t.cfg.TournamentID,
	}
	t.lastReport = &report
	t.handInProgress = false
	t.awaitingSettlement = true
	t.reconcile(report)

	t.publish(HandEnded{HandID: t.handID, Round: round})
	t.endOfHandSeats(seats)
	t.returnHandshakeSeats()
}

// potWinners picks the best shown hands among the pot's eligible seats.
// A pot nobody showed for goes to its live eligible seats.
func (t *Table) potWinners(p holdem.Pot, sd showdown, contenders []int) []int {
	hands := make(map[int]holdem.HandRank)
	for _, seat := range p.Eligible {
		if sd.revealed[seat] {
			hands[seat] = sd.ranks[seat]
		}
	}
	if len(hands) > 0 {
		return t.cfg.Evaluator.Winners(hands)
	}
	var out []int
	for _, seat := range contenders {
		if p.IsEligible(seat) {
			out = append(out, seat)
		}
	}
	return out
}

func revealedInOrder(sd showdown) []int {
	var out []int
	for _, seat := range sd.order {
		if sd.revealed[seat] {
			out = append(out, seat)
		}
	}
	return out
}

// endOfHandSeats releases leavers and moves everyone else to their
// between-hands state.
func (t *Table) endOfHandSeats(seats []int) {
	for _, seat := range seats {
		a := &t.accounts[seat]
		switch {
		case a.Leaving:
			t.releaseSeat(a)
			continue
		case a.Money == 0 && a.PendingBuyIn == 0:
			a.State = t.cfg.Variant.EndOfHand.Busted(a)
		case a.sitOutPending:
			a.State = SeatSittingOut
		default:
			a.State = SeatWaiting
		}
		a.sitOutPending = false
		t.seatChanged(a)
	}
}

// reconcile sends the round to the ledger. The verdict comes back as an
// actor event.
func (t *Table) reconcile(report ledger.RoundReport) {
	t.enqueue(func(ctx context.Context) {
		res, err := t.cfg.Ledger.EndRound(ctx, report)
		t.post(Event{Type: eventReconciled, handID: report.HandID, result: res, err: err})
	})
}

func (t *Table) handleReconciled(handID string, res ledger.RoundResult, err error) {
	if t.lastReport == nil || t.lastReport.HandID != handID {
		t.log.Warnf("table %s: stale ledger result for hand %s", t.cfg.ID, handID)
		return
	}
	t.awaitingSettlement = false
	if err != nil {
		t.frozen = true
		t.pendingErrorReport = true
		t.log.Errorf("table %s: end round for hand %s failed: %v", t.cfg.ID, handID, err)
		t.raiseAlert(AlertReconnectFailed, "hand %s not recorded: %v", handID, err)
		return
	}
	t.pendingErrorReport = false
	t.log.Debugf("table %s: hand %s recorded: %s", t.cfg.ID, handID, res.Status)

	teardown, pause := reconcileAction(res)
	switch {
	case teardown || t.closing:
		t.teardown()
	case pause:
		t.log.Infof("table %s paused by ledger", t.cfg.ID)
		t.paused = true
	default:
		t.dealSoon(t.cfg.HandDelay)
	}
}

// handleResume re-sends a report the ledger never took, or lifts a pause.
func (t *Table) handleResume() error {
	switch {
	case t.frozen && t.pendingErrorReport && t.lastReport != nil:
		t.frozen = false
		t.awaitingSettlement = true
		t.log.Infof("table %s: resending hand %s to the ledger", t.cfg.ID, t.lastReport.HandID)
		t.reconcile(*t.lastReport)
	case t.paused:
		t.paused = false
		t.dealSoon(t.cfg.HandDelay)
	}
	return nil
}
