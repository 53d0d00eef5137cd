package table

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"holdem-arena/card"
	"holdem-arena/holdem"
)

// harness drives a table on the test goroutine. The actor loop is not
// started; flush plays the ledger queue and the events it posts back.
type harness struct {
	t      *testing.T
	tbl    *Table
	ledger *fakeLedger

	mu   sync.Mutex
	msgs []Message
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	fl := newFakeLedger("alice", "bob", "carol", "dave")
	cfg := Config{
		ID:          "t1",
		MaxSeats:    6,
		MinBuyIn:    100,
		MaxBuyIn:    5000,
		TurnTimeout: time.Hour,
		HandDelay:   time.Hour,
		Variant:     Cash(BlindLevel{Small: 5, Big: 10}, RakePolicy{}),
		Ledger:      fl,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	tbl, err := newTable(cfg)
	require.NoError(t, err)
	go tbl.ledgerLoop()
	t.Cleanup(tbl.Stop)

	h := &harness{t: t, tbl: tbl, ledger: fl}
	tbl.Subscribe(ObserverFunc(func(_ string, m Message) {
		h.mu.Lock()
		h.msgs = append(h.msgs, m)
		h.mu.Unlock()
	}))
	return h
}

func (h *harness) do(e Event) error {
	return h.tbl.handleEvent(e)
}

func (h *harness) drain() int {
	n := 0
	for {
		select {
		case e := <-h.tbl.events:
			_ = h.tbl.handleEvent(e)
			n++
		default:
			return n
		}
	}
}

// flush waits for every queued ledger call and handles what they posted,
// until nothing new turns up.
func (h *harness) flush() {
	h.t.Helper()
	for i := 0; i < 100; i++ {
		done := make(chan struct{})
		h.tbl.mu.Lock()
		closed := h.tbl.closed
		if !closed {
			h.tbl.enqueue(func(context.Context) { close(done) })
		}
		h.tbl.mu.Unlock()
		if closed {
			h.drain()
			return
		}
		<-done
		if h.drain() == 0 {
			return
		}
	}
	h.t.Fatal("table never settled")
}

func (h *harness) sit(userID string, seat int, buyIn int64) {
	h.t.Helper()
	require.NoError(h.t, h.do(Event{Type: EventSitDown, UserID: userID, Seat: seat, Amount: buyIn}))
	h.flush()
	require.Equal(h.t, SeatWaiting, h.tbl.accounts[seat].State)
}

func (h *harness) start() {
	h.t.Helper()
	require.NoError(h.t, h.do(Event{Type: EventStartHand}))
}

func (h *harness) act(seat int, action holdem.ActionType, amount int64) {
	h.t.Helper()
	require.NoError(h.t, h.do(Event{Type: EventAction, Seat: seat, Action: action, Amount: amount}))
}

func (h *harness) timeout() {
	h.do(Event{Type: eventTimeout, seq: h.tbl.turn.seq})
}

// stack deals cards in order from the top of the deck for every hand.
func (h *harness) stack(cards string) {
	h.t.Helper()
	front, err := card.ParseList(cards)
	require.NoError(h.t, err)
	deck := append(card.CardList(front), card.NewDeck().Without(front)...)
	h.tbl.deck = func([32]byte) card.CardList { return deck.Clone() }
}

func (h *harness) messages() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Message(nil), h.msgs...)
}

func messagesOf[T Message](h *harness) []T {
	var out []T
	for _, m := range h.messages() {
		if v, ok := m.(T); ok {
			out = append(out, v)
		}
	}
	return out
}
