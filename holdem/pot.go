package holdem

import "sort"

// CalculatePots layers the pot under all-in conditions. All-in contributors
// are tiered by ante first and then by bet, both ascending; every tier skims
// up to its width from each contributor, and only non-folded contributors to
// a layer may win it. With includeUncalled false, the uncalled excess
// reported by ReturnBet is left out.
func (e *Engine) CalculatePots(includeUncalled bool) []Pot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.calculatePots(includeUncalled)
}

type potShare struct {
	seat int
	ante int64
	bet  int64
	live bool
}

func (e *Engine) calculatePots(includeUncalled bool) []Pot {
	var shares []*potShare
	for i := range e.seats {
		h := &e.seats[i]
		if !h.Playing || h.Contribution() == 0 {
			continue
		}
		shares = append(shares, &potShare{seat: i, ante: h.Ante + h.Dead, bet: h.TotalBet, live: h.Live()})
	}
	if !includeUncalled {
		if seat, excess := e.uncalled(); excess > 0 {
			for _, s := range shares {
				if s.seat == seat {
					s.bet -= excess
				}
			}
		}
	}

	var anteTiers, betTiers []int64
	for _, s := range shares {
		if !e.seats[s.seat].AllIn {
			continue
		}
		if s.ante > 0 {
			anteTiers = appendTier(anteTiers, s.ante)
		}
		if s.bet > 0 {
			betTiers = appendTier(betTiers, s.bet)
		}
	}
	sort.Slice(anteTiers, func(i, j int) bool { return anteTiers[i] < anteTiers[j] })
	sort.Slice(betTiers, func(i, j int) bool { return betTiers[i] < betTiers[j] })

	var pots []Pot
	layer := func(take func(s *potShare) int64) {
		var p Pot
		for _, s := range shares {
			n := take(s)
			if n <= 0 {
				continue
			}
			p.Amount += n
			if s.live {
				p.Eligible = append(p.Eligible, s.seat)
			}
		}
		if p.Amount > 0 {
			pots = append(pots, p)
		}
	}

	var prev int64
	for _, t := range anteTiers {
		width := t - prev
		prev = t
		layer(func(s *potShare) int64 {
			n := min(width, s.ante)
			s.ante -= n
			return n
		})
	}
	prev = 0
	for _, t := range betTiers {
		width := t - prev
		prev = t
		layer(func(s *potShare) int64 {
			n := min(width, s.bet) + s.ante
			s.bet -= n - s.ante
			s.ante = 0
			return n
		})
	}
	layer(func(s *potShare) int64 {
		n := s.ante + s.bet
		s.ante, s.bet = 0, 0
		return n
	})

	return mergePots(pots)
}

// mergePots folds layers nobody can win into the layer below them and joins
// neighbours with the same eligible set.
func mergePots(pots []Pot) []Pot {
	out := make([]Pot, 0, len(pots))
	var orphan int64
	for _, p := range pots {
		if len(p.Eligible) == 0 {
			if len(out) > 0 {
				out[len(out)-1].Amount += p.Amount
			} else {
				orphan += p.Amount
			}
			continue
		}
		p.Amount += orphan
		orphan = 0
		if n := len(out); n > 0 && sameSeats(out[n-1].Eligible, p.Eligible) {
			out[n-1].Amount += p.Amount
			continue
		}
		out = append(out, p)
	}
	return out
}

func appendTier(tiers []int64, t int64) []int64 {
	for _, x := range tiers {
		if x == t {
			return tiers
		}
	}
	return append(tiers, t)
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
