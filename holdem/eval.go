package holdem

import (
	"sort"

	"github.com/chehsunliu/poker"

	"holdem-arena/card"
)

// worstRank is one past the weakest of the 7462 distinct five-card ranks.
const worstRank = 7463

// HandRank is an evaluated hand. Higher Score wins; equal scores tie.
type HandRank struct {
	Score int32
	// Class runs from 1 (straight flush) to 9 (high card).
	Class int32
	Name  string
	Best  []card.Card
}

// Evaluator ranks hands. Omaha hands must use exactly two hole cards and
// three board cards.
type Evaluator struct {
	Omaha bool
}

var libCards [64]poker.Card

func init() {
	for _, c := range card.NewDeck() {
		libCards[c] = poker.NewCard(c.String())
	}
}

func toLib(cs []card.Card) []poker.Card {
	out := make([]poker.Card, len(cs))
	for i, c := range cs {
		out[i] = libCards[c]
	}
	return out
}

// Score ranks hole+board without recovering the best five.
func (ev Evaluator) Score(hole, board []card.Card) int32 {
	if !ev.Omaha {
		if len(hole)+len(board) < 5 {
			return 0
		}
		all := make([]card.Card, 0, len(hole)+len(board))
		all = append(append(all, hole...), board...)
		return worstRank - poker.Evaluate(toLib(all))
	}
	best := int32(0)
	ev.eachCombo(hole, board, func(five []card.Card) {
		if s := worstRank - poker.Evaluate(toLib(five)); s > best {
			best = s
		}
	})
	return best
}

// Rank evaluates hole+board and returns the best five cards.
func (ev Evaluator) Rank(hole, board []card.Card) HandRank {
	var best HandRank
	var bestLib int32 = worstRank
	ev.eachCombo(hole, board, func(five []card.Card) {
		r := poker.Evaluate(toLib(five))
		if r < bestLib {
			bestLib = r
			best.Best = cloneCards(five)
		}
	})
	if bestLib == worstRank {
		return HandRank{}
	}
	best.Score = worstRank - bestLib
	best.Class = poker.RankClass(bestLib)
	best.Name = poker.RankString(bestLib)
	return best
}

// Winners returns the seats holding the top score, ties included, in seat order.
func (ev Evaluator) Winners(hands map[int]HandRank) []int {
	var top int32 = -1
	var out []int
	for seat, h := range hands {
		switch {
		case h.Score > top:
			top = h.Score
			out = append(out[:0], seat)
		case h.Score == top:
			out = append(out, seat)
		}
	}
	sort.Ints(out)
	return out
}

func (ev Evaluator) eachCombo(hole, board []card.Card, fn func(five []card.Card)) {
	five := make([]card.Card, 5)
	if ev.Omaha {
		if len(hole) < 2 || len(board) < 3 {
			return
		}
		for a := 0; a < len(hole); a++ {
			for b := a + 1; b < len(hole); b++ {
				for x := 0; x < len(board); x++ {
					for y := x + 1; y < len(board); y++ {
						for z := y + 1; z < len(board); z++ {
							five[0], five[1] = hole[a], hole[b]
							five[2], five[3], five[4] = board[x], board[y], board[z]
							fn(five)
						}
					}
				}
			}
		}
		return
	}
	all := make([]card.Card, 0, len(hole)+len(board))
	all = append(append(all, hole...), board...)
	if len(all) < 5 {
		return
	}
	idx := []int{0, 1, 2, 3, 4}
	for {
		for i, j := range idx {
			five[i] = all[j]
		}
		fn(five)
		i := 4
		for i >= 0 && idx[i] == len(all)-5+i {
			i--
		}
		if i < 0 {
			return
		}
		idx[i]++
		for j := i + 1; j < 5; j++ {
			idx[j] = idx[j-1] + 1
		}
	}
}
