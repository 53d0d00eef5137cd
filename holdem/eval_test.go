package holdem

import (
	"math/rand"
	"testing"

	ph "github.com/paulhankin/poker"

	"holdem-arena/card"
)

func cards(t *testing.T, s string) []card.Card {
	t.Helper()
	cs, err := card.ParseList(s)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return cs
}

func TestRank_RoyalFlushBeatsLowerStraightFlush(t *testing.T) {
	var ev Evaluator
	board := cards(t, "Qs Js Ts 9s 2d")
	royal := ev.Rank(cards(t, "As Ks"), board)
	lower := ev.Rank(cards(t, "8s 7h"), board)

	if royal.Class != 1 || lower.Class != 1 {
		t.Fatalf("expected straight flushes, got classes %d and %d", royal.Class, lower.Class)
	}
	if royal.Score <= lower.Score {
		t.Fatalf("expected royal flush to beat lower straight flush: %d <= %d", royal.Score, lower.Score)
	}
	if len(royal.Best) != 5 {
		t.Fatalf("expected best five, got %v", royal.Best)
	}
}

func TestRank_WheelIsLowestStraight(t *testing.T) {
	var ev Evaluator
	wheel := ev.Rank(cards(t, "As 2h"), cards(t, "3c 4d 5s"))
	sixHigh := ev.Rank(cards(t, "2s 3h"), cards(t, "4c 5d 6s"))
	if wheel.Class != 5 || sixHigh.Class != 5 {
		t.Fatalf("expected straights, got %d and %d", wheel.Class, sixHigh.Class)
	}
	if wheel.Score >= sixHigh.Score {
		t.Fatalf("wheel must rank below six-high straight")
	}
}

func TestScoreMatchesRank(t *testing.T) {
	var ev Evaluator
	hole := cards(t, "Ah Ad")
	board := cards(t, "Ac 7s 7d 2c 9h")
	if ev.Score(hole, board) != ev.Rank(hole, board).Score {
		t.Fatalf("Score and Rank disagree")
	}
}

func TestOmahaUsesExactlyTwoHoleCards(t *testing.T) {
	omaha := Evaluator{Omaha: true}
	board := cards(t, "Ks Qs Js 4s 2d")
	hole := cards(t, "As 9h 9c 3d")

	r := omaha.Rank(hole, board)
	if r.Class == 1 || r.Class == 4 {
		t.Fatalf("one spade in hand cannot make a flush in Omaha, got %s", r.Name)
	}
	holdemRank := Evaluator{}.Rank(hole, board)
	if holdemRank.Class != 4 {
		t.Fatalf("hold'em may use one hole card, expected flush, got %s", holdemRank.Name)
	}
	if omaha.Score(hole, board) != r.Score {
		t.Fatalf("Omaha Score and Rank disagree")
	}
}

func TestWinnersIncludesTies(t *testing.T) {
	var ev Evaluator
	board := cards(t, "As Ks Qd Jc Th")
	hands := map[int]HandRank{
		3: ev.Rank(cards(t, "2c 3d"), board),
		1: ev.Rank(cards(t, "4c 5d"), board),
		5: ev.Rank(cards(t, "Ac 2d"), board),
	}
	got := ev.Winners(hands)
	if len(got) != 3 || got[0] != 1 || got[1] != 3 || got[2] != 5 {
		t.Fatalf("board plays for everyone, expected [1 3 5], got %v", got)
	}
}

func toReference(t *testing.T, cs []card.Card) *[7]ph.Card {
	t.Helper()
	suits := map[card.Suit]ph.Suit{card.Spade: ph.Spade, card.Heart: ph.Heart, card.Club: ph.Club, card.Diamond: ph.Diamond}
	var out [7]ph.Card
	for i, c := range cs {
		rc, err := ph.MakeCard(suits[c.Suit()], ph.Rank(c.Rank()))
		if err != nil {
			t.Fatalf("MakeCard(%v): %v", c, err)
		}
		out[i] = rc
	}
	return &out
}

// The reference evaluator must order random seven-card hands the same way.
func TestScoreOrderingAgreesWithReferenceEvaluator(t *testing.T) {
	var ev Evaluator
	r := rand.New(rand.NewSource(7))
	const n = 300
	ours := make([]int32, n)
	ref := make([]int16, n)
	for i := 0; i < n; i++ {
		deck := card.NewDeck()
		r.Shuffle(len(deck), func(a, b int) { deck[a], deck[b] = deck[b], deck[a] })
		hand := []card.Card(deck[:7])
		ours[i] = ev.Score(hand[:2], hand[2:])
		ref[i] = ph.Eval7(toReference(t, hand))
	}

	direction := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			a := sign(int64(ours[i]) - int64(ours[j]))
			b := sign(int64(ref[i]) - int64(ref[j]))
			if (a == 0) != (b == 0) {
				t.Fatalf("tie mismatch between hands %d and %d", i, j)
			}
			if a == 0 {
				continue
			}
			if direction == 0 {
				direction = a * b
			}
			if a*b != direction {
				t.Fatalf("ordering mismatch between hands %d and %d", i, j)
			}
		}
	}
}

func sign(x int64) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}
