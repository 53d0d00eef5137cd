package table

import (
	"context"

	"github.com/google/uuid"

	"holdem-arena/card"
	"holdem-arena/holdem"
	"holdem-arena/internal/await"
	"holdem-arena/internal/ledger"
)

// policy is an accepted insurance offer awaiting the river.
type policy struct {
	id      string
	seat    int
	premium int64
	payout  int64
}

// lossOdds counts, over every possible completion of the board, how often
// each of two hands ends up strictly behind.
type lossOdds struct {
	runouts int
	losses  map[int]int
}

func (o lossOdds) probability(seat int) float64 {
	if o.runouts == 0 {
		return 0
	}
	return float64(o.losses[seat]) / float64(o.runouts)
}

// enumerateLosses walks every ordered pair of remaining cards on a
// three-card board, or every remaining card on a four-card board.
func enumerateLosses(ev HandEvaluator, seats [2]int, holes [2][]card.Card, board []card.Card) lossOdds {
	odds := lossOdds{losses: make(map[int]int, 2)}
	remaining := card.NewDeck().Without(board, holes[0], holes[1])
	full := make([]card.Card, len(board), 5)
	copy(full, board)

	score := func(extra ...card.Card) {
		runout := append(full[:len(board)], extra...)
		s0 := ev.Score(holes[0], runout)
		s1 := ev.Score(holes[1], runout)
		odds.runouts++
		switch {
		case s0 < s1:
			odds.losses[seats[0]]++
		case s1 < s0:
			odds.losses[seats[1]]++
		}
	}

	switch len(board) {
	case 3:
		for i := range remaining {
			for j := range remaining {
				if i != j {
					score(remaining[i], remaining[j])
				}
			}
		}
	case 4:
		for _, c := range remaining {
			score(c)
		}
	}
	return odds
}

// evaluateInsurance offers cover when the hand has become a two-way all-in
// with a board still to come.
func (t *Table) evaluateInsurance() {
	contenders := t.engine.Contenders()
	if len(contenders) != 2 {
		return
	}
	board := t.engine.Board()
	if len(board) != 3 && len(board) != 4 {
		return
	}
	if t.engine.CountActions(holdem.ActionAllIn) != 2 {
		return
	}
	var holes [2][]card.Card
	for i, seat := range contenders {
		h, ok := t.engine.Seat(seat)
		if !ok || !h.AllIn {
			return
		}
		holes[i] = h.Hole
	}
	if _, none := t.cfg.Variant.Insurance.(noInsurance); none {
		return
	}

	seats := [2]int{contenders[0], contenders[1]}
	odds := enumerateLosses(t.cfg.Evaluator, seats, holes, board)
	pots := t.engine.CalculatePots(false)
	for _, seat := range seats {
		p := odds.probability(seat)
		stake := potShareFor(pots, seat)
		premium, ok := t.cfg.Variant.Insurance.Quote(p, stake)
		if !ok {
			continue
		}
		t.offerInsurance(InsuranceOffer{
			Seat:        seat,
			Probability: p,
			Outs:        odds.losses[seat],
			Runouts:     odds.runouts,
			Premium:     premium,
			Payout:      stake,
		})
	}
}

func potShareFor(pots []holdem.Pot, seat int) int64 {
	var total int64
	for _, p := range pots {
		if p.IsEligible(seat) {
			total += p.Amount
		}
	}
	return total
}

// offerInsurance holds the hand until the seat answers or the offer lapses.
func (t *Table) offerInsurance(offer InsuranceOffer) {
	timeout := t.cfg.InsuranceTimeout
	offer.Deadline = nowPlus(timeout)
	await.Drain(t.replies)
	t.publish(offer)

	res := await.CollectIf(t.ctx, t.replies, []int{offer.Seat}, timeout, replyOf(ReplyInsurance))
	r, ok := res.Got[offer.Seat]
	if !ok || !r.Accept {
		t.log.Debugf("table %s: seat %d declined insurance", t.cfg.ID, offer.Seat)
		return
	}

	pol := policy{id: uuid.NewString(), seat: offer.Seat, premium: offer.Premium, payout: offer.Payout}
	t.insurance = append(t.insurance, pol)
	ins := ledger.Insurance{
		ID:      pol.id,
		TableID: t.cfg.ID,
		HandID:  t.handID,
		UserID:  t.accounts[offer.Seat].UserID,
		Seat:    offer.Seat,
		Premium: pol.premium,
		Payout:  pol.payout,
	}
	t.log.Infof("table %s: seat %d insured %d for premium %d (p=%.3f)", t.cfg.ID, offer.Seat, pol.payout, pol.premium, offer.Probability)
	t.enqueue(func(ctx context.Context) {
		if err := t.cfg.Ledger.SubmitInsurance(ctx, ins); err != nil {
			t.log.Errorf("table %s: submit insurance %s failed: %v", ins.TableID, ins.ID, err)
		}
	})
}

// settleInsurance pays every policy whose seat won nothing.
func (t *Table) settleInsurance(wins map[int]int64) {
	for _, pol := range t.insurance {
		if wins[pol.seat] > 0 {
			continue
		}
		pol := pol
		tableID := t.cfg.ID
		t.log.Infof("table %s: insurance %s pays %d to seat %d", tableID, pol.id, pol.payout, pol.seat)
		t.enqueue(func(ctx context.Context) {
			if err := t.cfg.Ledger.WinInsurance(ctx, pol.id, pol.payout); err != nil {
				t.log.Errorf("table %s: win insurance %s failed: %v", tableID, pol.id, err)
			}
		})
	}
	t.insurance = nil
}
