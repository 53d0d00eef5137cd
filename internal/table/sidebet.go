package table

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"holdem-arena/card"
	"holdem-arena/holdem"
	"holdem-arena/internal/ledger"
)

// SidebetRule pays Amount*Multiplier when Wins holds at hand end.
type SidebetRule struct {
	Kind       string
	Multiplier int64
	Wins       func(hole, board []card.Card) bool
}

// SidebetCatalog is the payout table for side bets.
type SidebetCatalog interface {
	Rule(kind string) (SidebetRule, bool)
}

type Catalog map[string]SidebetRule

func (c Catalog) Rule(kind string) (SidebetRule, bool) {
	r, ok := c[kind]
	return r, ok
}

func DefaultCatalog() Catalog {
	rules := []SidebetRule{
		{Kind: "pocket_pair", Multiplier: 12, Wins: func(hole, _ []card.Card) bool {
			return len(hole) >= 2 && hole[0].Rank() == hole[1].Rank()
		}},
		{Kind: "suited_hole", Multiplier: 4, Wins: func(hole, _ []card.Card) bool {
			return len(hole) >= 2 && hole[0].Suit() == hole[1].Suit()
		}},
		{Kind: "ace_in_hole", Multiplier: 6, Wins: func(hole, _ []card.Card) bool {
			for _, c := range hole {
				if c.IsAce() {
					return true
				}
			}
			return false
		}},
		{Kind: "board_paired", Multiplier: 2, Wins: func(_, board []card.Card) bool {
			seen := make(map[byte]bool, len(board))
			for _, c := range board {
				if seen[c.Rank()] {
					return true
				}
				seen[c.Rank()] = true
			}
			return false
		}},
	}
	c := make(Catalog, len(rules))
	for _, r := range rules {
		c[r.Kind] = r
	}
	return c
}

type placedSidebet struct {
	bet ledger.Sidebet
}

func (t *Table) openSidebetWindow(street holdem.Street) {
	t.sidebetEnd = time.Now().Add(t.cfg.SidebetWindow)
	t.publish(SidebetWindow{Street: street, Deadline: t.sidebetEnd})
}

func (t *Table) handleSidebet(seat int, kind string, amount int64) error {
	if !t.handInProgress {
		return ErrNoHand
	}
	a := t.account(seat)
	if a == nil || !a.occupied() {
		return ErrSeatNotPlaying
	}
	if _, ok := t.engine.Seat(seat); !ok {
		return ErrSeatNotPlaying
	}
	if time.Now().After(t.sidebetEnd) {
		return ErrSidebetClosed
	}
	if _, ok := t.cfg.Sidebets.Rule(kind); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSidebet, kind)
	}
	if amount <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidAmount, amount)
	}

	bet := ledger.Sidebet{
		ID:      uuid.NewString(),
		TableID: t.cfg.ID,
		HandID:  t.handID,
		UserID:  a.UserID,
		Seat:    seat,
		Street:  t.engine.Street().String(),
		Kind:    kind,
		Amount:  amount,
	}
	t.sidebets = append(t.sidebets, placedSidebet{bet: bet})
	t.enqueue(func(ctx context.Context) {
		if err := t.cfg.Ledger.SubmitSidebet(ctx, bet); err != nil {
			t.log.Errorf("table %s: submit sidebet %s failed: %v", bet.TableID, bet.ID, err)
		}
	})
	return nil
}

// resolveSidebets settles every bet of the finished hand.
func (t *Table) resolveSidebets() {
	board := t.engine.Board()
	for _, sb := range t.sidebets {
		payout := int64(0)
		if rule, ok := t.cfg.Sidebets.Rule(sb.bet.Kind); ok {
			h, _ := t.engine.Seat(sb.bet.Seat)
			if rule.Wins(h.Hole, board) {
				payout = sb.bet.Amount * rule.Multiplier
			}
		}
		t.submitSidebetResult(ledger.SidebetResult{BetID: sb.bet.ID, Payout: payout})
	}
	t.sidebets = nil
}

// cleanupSidebets refunds bets left open by a hand that never finished.
func (t *Table) cleanupSidebets() {
	for _, sb := range t.sidebets {
		t.submitSidebetResult(ledger.SidebetResult{BetID: sb.bet.ID, Refunded: true})
	}
	t.sidebets = nil
}

func (t *Table) submitSidebetResult(res ledger.SidebetResult) {
	tableID := t.cfg.ID
	t.enqueue(func(ctx context.Context) {
		if err := t.cfg.Ledger.SubmitSidebetResult(ctx, res); err != nil {
			t.log.Errorf("table %s: sidebet result %s failed: %v", tableID, res.BetID, err)
		}
	})
}
