package table

import (
	"holdem-arena/holdem"
)

// showdown records who showed and what they held.
type showdown struct {
	order    []int
	ranks    map[int]holdem.HandRank
	revealed map[int]bool
}

// revealOrder lists contenders clockwise, starting at the final street's
// aggressor or, failing that, the first seat after the button.
func revealOrder(contenders []int, aggressor, dealer, maxSeats int) []int {
	in := make(map[int]bool, len(contenders))
	for _, s := range contenders {
		in[s] = true
	}
	start := (dealer + 1) % maxSeats
	if aggressor != holdem.NoSeat && in[aggressor] {
		start = aggressor
	}
	order := make([]int, 0, len(contenders))
	for i := 0; i < maxSeats; i++ {
		if s := (start + i) % maxSeats; in[s] {
			order = append(order, s)
		}
	}
	return order
}

// runShowdown walks the reveal order. A seat shows when it is the first to
// show in some pot it can win, or when it ties or beats the best hand shown
// in such a pot; otherwise it mucks. After an all-in run-out every
// contender shows.
func (t *Table) runShowdown(pots []holdem.Pot) showdown {
	sd := showdown{ranks: make(map[int]holdem.HandRank), revealed: make(map[int]bool)}
	contenders := t.engine.Contenders()
	if len(contenders) < 2 {
		return sd
	}
	sd.order = revealOrder(contenders, t.engine.Aggressor(), t.engine.Dealer(), t.cfg.MaxSeats)
	board := t.engine.Board()

	runout, actors := false, 0
	for _, seat := range contenders {
		h, _ := t.engine.Seat(seat)
		if h.AllIn {
			runout = true
		} else {
			actors++
		}
	}
	runout = runout && actors <= 1

	best := make([]int32, len(pots))
	shown := make([]bool, len(pots))
	for _, seat := range sd.order {
		h, _ := t.engine.Seat(seat)
		rank := t.cfg.Evaluator.Rank(h.Hole, board)

		show := runout
		for i, p := range pots {
			if !p.IsEligible(seat) {
				continue
			}
			if !shown[i] || rank.Score >= best[i] {
				show = true
			}
		}
		if !show {
			t.engine.MarkDead(seat)
			t.publish(MuckCards{Seat: seat})
			continue
		}

		sd.revealed[seat] = true
		sd.ranks[seat] = rank
		for i, p := range pots {
			if !p.IsEligible(seat) {
				continue
			}
			if !shown[i] || rank.Score > best[i] {
				best[i] = rank.Score
			}
			shown[i] = true
		}
		t.publish(ShowCards{Seat: seat, Cards: h.Hole, Rank: rank})
	}
	return sd
}
