package table

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-arena/holdem"
	"holdem-arena/internal/ledger"
	"holdem-arena/internal/shuffle"
)

func TestSitDownWaitsForLedger(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.do(Event{Type: EventSitDown, UserID: "alice", Seat: 0, Amount: 1000}))
	assert.Equal(t, SeatJoining, h.tbl.accounts[0].State)
	h.flush()
	assert.Equal(t, SeatWaiting, h.tbl.accounts[0].State)
	assert.Equal(t, int64(1000), h.tbl.accounts[0].Money)
	h.ledger.view(func(f *fakeLedger) {
		assert.Equal(t, int64(99000), f.balances["alice"])
	})

	assert.ErrorIs(t, h.do(Event{Type: EventSitDown, UserID: "bob", Seat: 0, Amount: 1000}), ErrSeatTaken)
	assert.ErrorIs(t, h.do(Event{Type: EventSitDown, UserID: "alice", Seat: 1, Amount: 1000}), ErrAlreadySeated)
	assert.ErrorIs(t, h.do(Event{Type: EventSitDown, UserID: "bob", Seat: 1, Amount: 50}), ErrInvalidBuyIn)
	assert.ErrorIs(t, h.do(Event{Type: EventSitDown, UserID: "bob", Seat: 9, Amount: 1000}), ErrInvalidSeat)

	require.NoError(t, h.do(Event{Type: EventSitDown, UserID: "nobody", Seat: 2, Amount: 1000}))
	h.flush()
	assert.Equal(t, SeatEmpty, h.tbl.accounts[2].State)
}

func TestStandUpWhileJoiningRefunds(t *testing.T) {
	h := newHarness(t, nil)

	require.NoError(t, h.do(Event{Type: EventSitDown, UserID: "alice", Seat: 0, Amount: 1000}))
	require.NoError(t, h.do(Event{Type: EventStandUp, Seat: 0}))
	assert.Equal(t, SeatEmpty, h.tbl.accounts[0].State)
	h.flush()

	h.ledger.view(func(f *fakeLedger) {
		assert.Equal(t, int64(1000), f.leaves["alice"])
		assert.Equal(t, int64(100000), f.balances["alice"])
	})
	assert.Equal(t, SeatEmpty, h.tbl.accounts[0].State)
}

func TestStartHandNeedsTwoPlayers(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrNotEnoughPlayers)
}

func TestWalkIsNotRaked(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Variant = Cash(BlindLevel{Small: 5, Big: 10}, RakePolicy{BasisPoints: 500, Cap: 3})
	})
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	assert.Equal(t, 0, h.tbl.dealer)
	assert.Equal(t, 0, h.tbl.engine.Turn())
	assert.ErrorIs(t, h.do(Event{Type: EventAction, Seat: 1, Action: holdem.ActionCheck}), ErrNotYourTurn)

	h.act(0, holdem.ActionFold, 0)
	h.flush()

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Zero(t, res.Rake)
	assert.True(t, res.Conserved)
	assert.Equal(t, int64(995), res.End[0])
	assert.Equal(t, int64(1005), res.End[1])
	assert.Empty(t, res.Reveal)
	assert.Equal(t, int64(995), h.tbl.accounts[0].Money)
	assert.Equal(t, SeatWaiting, h.tbl.accounts[0].State)
	assert.False(t, h.tbl.awaitingSettlement)

	h.ledger.view(func(f *fakeLedger) {
		require.Len(t, f.reports, 1)
		assert.Equal(t, res.HandID, f.reports[0].HandID)
		assert.Len(t, f.reports[0].Players, 2)
	})
	assert.Len(t, messagesOf[HandEnded](h), 1)
}

func TestShowdownRakesAndPaysBestHand(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Variant = Cash(BlindLevel{Small: 5, Big: 10}, RakePolicy{BasisPoints: 500, Cap: 3})
	})
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.stack("As Kd Ah Kc 2s 7h 9d Jc 3h")
	h.start()

	h.act(0, holdem.ActionCall, 0)
	h.act(1, holdem.ActionCheck, 0)
	for i := 0; i < 3; i++ {
		h.act(1, holdem.ActionCheck, 0)
		h.act(0, holdem.ActionCheck, 0)
	}
	h.flush()

	res := h.tbl.lastResult
	require.NotNil(t, res)
	require.Len(t, res.Pots, 1)
	assert.Equal(t, int64(20), res.Pots[0].Amount)
	assert.Equal(t, int64(1), res.Rake)
	assert.Equal(t, []int{0}, res.Pots[0].Winners)
	assert.Equal(t, int64(1009), res.End[0])
	assert.Equal(t, int64(990), res.End[1])
	assert.Equal(t, []int{1, 0}, res.Reveal)
	assert.True(t, res.Conserved)
}

func TestShowdownMucksBeatenHands(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.sit("carol", 2, 1000)
	// dealt from the small blind: 1, 2, 0, 1, 2, 0
	h.stack("As Ks Qs Ah Kh Qh 2c 7d 9c Jd 3s")
	h.start()

	h.act(0, holdem.ActionCall, 0)
	h.act(1, holdem.ActionCall, 0)
	h.act(2, holdem.ActionCheck, 0)
	for i := 0; i < 3; i++ {
		h.act(1, holdem.ActionCheck, 0)
		h.act(2, holdem.ActionCheck, 0)
		h.act(0, holdem.ActionCheck, 0)
	}
	h.flush()

	shows := messagesOf[ShowCards](h)
	require.Len(t, shows, 1)
	assert.Equal(t, 1, shows[0].Seat)
	var mucked []int
	for _, m := range messagesOf[MuckCards](h) {
		mucked = append(mucked, m.Seat)
	}
	assert.Equal(t, []int{2, 0}, mucked)

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Equal(t, int64(1020), res.End[1])
	assert.True(t, res.Conserved)
}

func TestTimeoutChecksOrFolds(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)

	h.start()
	require.Equal(t, 0, h.tbl.engine.Turn())
	h.timeout()
	require.NotNil(t, h.tbl.lastResult)
	assert.Equal(t, int64(1005), h.tbl.lastResult.End[1])
	h.flush()

	h.start()
	assert.Equal(t, 1, h.tbl.dealer)
	h.act(1, holdem.ActionCall, 0)
	require.Equal(t, 0, h.tbl.engine.Turn())
	h.timeout()

	applied := messagesOf[ActionApplied](h)
	last := applied[len(applied)-1]
	assert.True(t, last.Auto)
	assert.Equal(t, 0, last.Seat)
	assert.Equal(t, holdem.ActionCheck, last.Action)
	assert.Equal(t, holdem.StreetFlop, h.tbl.engine.Street())
}

func TestTimebankSpentOnceBeforeAutoAction(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Timebank = TimebankConfig{Initial: time.Minute}
	})
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	h.timeout()
	assert.Equal(t, 0, h.tbl.engine.Turn())
	assert.Zero(t, h.tbl.accounts[0].TimeBank)
	turns := messagesOf[TurnChanged](h)
	assert.True(t, turns[len(turns)-1].Timebank)
	assert.Nil(t, h.tbl.lastResult)

	h.timeout()
	require.NotNil(t, h.tbl.lastResult)
	h0, _ := h.tbl.engine.Seat(0)
	assert.True(t, h0.Folded)
}

func TestFastActionEarnsTimebank(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Timebank = TimebankConfig{Earn: 2 * time.Second, Cap: 3 * time.Second, FastAct: time.Minute}
	})
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	h.act(0, holdem.ActionCall, 0)
	h.act(1, holdem.ActionCheck, 0)
	h.act(1, holdem.ActionCheck, 0)
	assert.Equal(t, 2*time.Second, h.tbl.accounts[0].TimeBank)
	assert.Equal(t, 3*time.Second, h.tbl.accounts[1].TimeBank)
}

func TestStandUpFoldsAndReleasesAfterHand(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.sit("carol", 2, 1000)
	h.start()

	// bob is not on turn: he folds when the turn reaches him
	require.NoError(t, h.do(Event{Type: EventStandUp, Seat: 1}))
	assert.True(t, h.tbl.accounts[1].Leaving)
	h.act(0, holdem.ActionCall, 0)
	h1, _ := h.tbl.engine.Seat(1)
	assert.True(t, h1.Folded)
	require.Equal(t, 2, h.tbl.engine.Turn())

	// carol is on turn: she folds at once
	require.NoError(t, h.do(Event{Type: EventStandUp, Seat: 2}))
	h.flush()

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Equal(t, int64(1015), res.End[0])
	assert.True(t, res.Conserved)
	assert.Equal(t, SeatEmpty, h.tbl.accounts[1].State)
	assert.Equal(t, SeatEmpty, h.tbl.accounts[2].State)
	h.ledger.view(func(f *fakeLedger) {
		assert.Equal(t, int64(995), f.leaves["bob"])
		assert.Equal(t, int64(990), f.leaves["carol"])
	})
}

func TestBuyInAppliedBetweenHands(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	require.NoError(t, h.do(Event{Type: EventBuyIn, Seat: 0, Amount: 500}))
	h.flush()
	assert.Equal(t, int64(500), h.tbl.accounts[0].PendingBuyIn)
	assert.Equal(t, int64(1000), h.tbl.accounts[0].Money)

	h.act(0, holdem.ActionFold, 0)
	h.flush()
	h.start()
	assert.Zero(t, h.tbl.accounts[0].PendingBuyIn)
	assert.Equal(t, int64(1495), h.tbl.startStack[0])

	assert.ErrorIs(t, h.do(Event{Type: EventBuyIn, Seat: 1, Amount: 10000}), ErrInvalidBuyIn)
}

func TestSitOutDuringHandTakesEffectAfter(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.sit("carol", 2, 1000)
	h.start()

	require.NoError(t, h.do(Event{Type: EventSitOut, Seat: 0}))
	assert.Equal(t, SeatPlaying, h.tbl.accounts[0].State)
	h.act(0, holdem.ActionFold, 0)
	h.act(1, holdem.ActionFold, 0)
	h.flush()

	assert.Equal(t, SeatSittingOut, h.tbl.accounts[0].State)
	h.start()
	_, dealt := h.tbl.engine.Seat(0)
	assert.False(t, dealt)
	assert.True(t, h.tbl.accounts[0].MissedBlind)

	require.NoError(t, h.do(Event{Type: EventSitIn, Seat: 0}))
	assert.Equal(t, SeatWaiting, h.tbl.accounts[0].State)
}

func TestLedgerFailureFreezesUntilResume(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.ledger.set(func(f *fakeLedger) {
		f.endErr = errors.Join(ledger.ErrReconnectFailed, errors.New("db down"))
	})

	h.start()
	h.act(0, holdem.ActionFold, 0)
	h.flush()

	assert.True(t, h.tbl.frozen)
	require.Len(t, h.tbl.alerts, 1)
	assert.Equal(t, AlertReconnectFailed, h.tbl.alerts[0].Code)
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrFrozen)

	h.ledger.set(func(f *fakeLedger) { f.endErr = nil })
	require.NoError(t, h.do(Event{Type: EventResume}))
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrAwaitingSettlement)
	h.flush()

	assert.False(t, h.tbl.frozen)
	assert.False(t, h.tbl.pendingErrorReport)
	h.ledger.view(func(f *fakeLedger) {
		require.Len(t, f.reports, 1)
		assert.Equal(t, h.tbl.lastResult.HandID, f.reports[0].HandID)
	})
	h.start()
}

func TestLedgerDeleteTearsDown(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.ledger.set(func(f *fakeLedger) { f.result = ledger.RoundResult{Status: ledger.StatusDeleteTable} })

	h.start()
	h.act(0, holdem.ActionFold, 0)
	h.flush()

	assert.True(t, h.tbl.closed)
	require.Eventually(t, func() bool {
		var n int
		h.ledger.view(func(f *fakeLedger) { n = len(f.leaves) })
		return n == 2
	}, time.Second, 5*time.Millisecond)
	h.ledger.view(func(f *fakeLedger) {
		assert.Equal(t, int64(995), f.leaves["alice"])
		assert.Equal(t, int64(1005), f.leaves["bob"])
	})
}

func TestCloseWaitsForHandToSettle(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	require.NoError(t, h.do(Event{Type: EventClose}))
	assert.False(t, h.tbl.closed)
	assert.ErrorIs(t, h.do(Event{Type: EventSitDown, UserID: "carol", Seat: 2, Amount: 1000}), ErrTableClosed)

	h.act(0, holdem.ActionFold, 0)
	h.flush()
	assert.True(t, h.tbl.closed)
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrTableClosed)
}

func TestTournamentEliminatesAndPauses(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Variant = Tournament(FixedBlinds{Small: 5, Big: 10})
		c.TournamentID = "trn-1"
	})
	h.sit("alice", 0, 100)
	h.sit("bob", 1, 1000)
	h.ledger.set(func(f *fakeLedger) { f.result = ledger.RoundResult{Status: ledger.StatusPause} })
	// dealt from the small blind (seat 0): 0, 1, 0, 1
	h.stack("2c Ah 7d As Kc 9s 4h 3d Jc")

	h.start()
	h.act(0, holdem.ActionAllIn, 0)
	h.act(1, holdem.ActionCall, 0)
	h.flush()

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Zero(t, res.Rake)
	assert.Equal(t, int64(1100), res.End[1])
	assert.Equal(t, SeatEliminated, h.tbl.accounts[0].State)
	assert.Empty(t, messagesOf[InsuranceOffer](h))
	assert.True(t, h.tbl.paused)
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrPaused)
	h.ledger.view(func(f *fakeLedger) {
		assert.Equal(t, "trn-1", f.reports[0].TournamentID)
	})
}

func TestTournamentDoesNotDealOnBreak(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.Variant = Tournament(BlindFunc(func() (BlindLevel, bool) { return BlindLevel{}, false }))
	})
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	assert.ErrorIs(t, h.do(Event{Type: EventStartHand}), ErrOnBreak)
}

func TestInsuranceOfferedAndPaidOnLoss(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.tbl.Subscribe(ObserverFunc(func(_ string, m Message) {
		if offer, ok := m.(InsuranceOffer); ok {
			h.tbl.SubmitReply(offer.Seat, Reply{Kind: ReplyInsurance, Accept: true})
		}
	}))
	// aces against kings, a king on the turn
	h.stack("As Ks Ah Kh 2c 7d 9c Kc 3s")
	h.start()

	h.act(0, holdem.ActionCall, 0)
	h.act(1, holdem.ActionCheck, 0)
	h.act(1, holdem.ActionAllIn, 0)
	h.act(0, holdem.ActionAllIn, 0)
	h.flush()

	offers := messagesOf[InsuranceOffer](h)
	require.Len(t, offers, 1)
	offer := offers[0]
	assert.Equal(t, 0, offer.Seat)
	assert.Equal(t, 45*44, offer.Runouts)
	assert.Greater(t, offer.Probability, 0.0)
	assert.Less(t, offer.Probability, 0.33)
	assert.Equal(t, int64(2000), offer.Payout)
	assert.Positive(t, offer.Premium)

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Equal(t, []int{1}, res.Pots[0].Winners)
	assert.ElementsMatch(t, []int{0, 1}, res.Reveal)

	h.ledger.view(func(f *fakeLedger) {
		require.Len(t, f.insurance, 1)
		assert.Equal(t, 0, f.insurance[0].Seat)
		assert.Equal(t, offer.Premium, f.insurance[0].Premium)
		assert.Equal(t, int64(2000), f.insuranceW[f.insurance[0].ID])
	})
}

type countingPricing struct {
	quotes *int
}

func (c countingPricing) Quote(float64, int64) (int64, bool) {
	*c.quotes++
	return 1, true
}

func callAround(h *harness) {
	street := h.tbl.engine.Street()
	for h.tbl.handInProgress && h.tbl.engine.Street() == street {
		seat := h.tbl.engine.Turn()
		if h.tbl.engine.Actions(seat).Has(holdem.ActionCall) {
			h.act(seat, holdem.ActionCall, 0)
		} else {
			h.act(seat, holdem.ActionCheck, 0)
		}
	}
}

func TestInsuranceOnlyForTwoWayAllInOnFlopOrTurn(t *testing.T) {
	cases := []struct {
		name   string
		stacks []int64
		play   func(h *harness)
		quotes int
	}{
		{
			name:   "both all in on the flop",
			stacks: []int64{1000, 1000},
			play: func(h *harness) {
				callAround(h)
				h.act(1, holdem.ActionAllIn, 0)
				h.act(0, holdem.ActionAllIn, 0)
			},
			quotes: 2,
		},
		{
			name:   "all in before the flop",
			stacks: []int64{1000, 1000},
			play: func(h *harness) {
				h.act(0, holdem.ActionAllIn, 0)
				h.act(1, holdem.ActionAllIn, 0)
			},
		},
		{
			name:   "called by a deeper stack",
			stacks: []int64{1000, 2000},
			play: func(h *harness) {
				callAround(h)
				h.act(1, holdem.ActionCheck, 0)
				h.act(0, holdem.ActionAllIn, 0)
				h.act(1, holdem.ActionCall, 0)
			},
		},
		{
			name:   "three players all in",
			stacks: []int64{1000, 1000, 1000},
			play: func(h *harness) {
				callAround(h)
				for i := 0; i < 3; i++ {
					h.act(h.tbl.engine.Turn(), holdem.ActionAllIn, 0)
				}
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			quotes := 0
			h := newHarness(t, func(c *Config) {
				c.InsuranceTimeout = 10 * time.Millisecond
				v := Cash(BlindLevel{Small: 5, Big: 10}, RakePolicy{})
				v.Insurance = countingPricing{quotes: &quotes}
				c.Variant = v
			})
			users := []string{"alice", "bob", "carol"}
			for i, stack := range tc.stacks {
				h.sit(users[i], i, stack)
			}
			h.start()
			tc.play(h)
			h.flush()

			assert.False(t, h.tbl.handInProgress)
			assert.Equal(t, tc.quotes, quotes)
			assert.Len(t, messagesOf[InsuranceOffer](h), tc.quotes)
		})
	}
}

func TestInsuranceDeclinedByTimeout(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.InsuranceTimeout = 20 * time.Millisecond })
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.stack("As Ks Ah Kh 2c 7d 9c 4c 3s")
	h.start()

	h.act(0, holdem.ActionCall, 0)
	h.act(1, holdem.ActionCheck, 0)
	h.act(1, holdem.ActionAllIn, 0)
	h.act(0, holdem.ActionAllIn, 0)
	h.flush()

	assert.Len(t, messagesOf[InsuranceOffer](h), 1)
	h.ledger.view(func(f *fakeLedger) { assert.Empty(t, f.insurance) })
	require.NotNil(t, h.tbl.lastResult)
	assert.Equal(t, []int{0}, h.tbl.lastResult.Pots[0].Winners)
}

func TestShuffleMismatchSitsOutOnlyThatSeat(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.ShuffleCommit = true
		c.HandshakeTimeout = 200 * time.Millisecond
	})
	for i, u := range []string{"alice", "bob", "carol", "dave"} {
		h.sit(u, i, 1000)
	}
	secrets := make(map[int][]byte)
	for s := 0; s < 4; s++ {
		secrets[s] = bytes.Repeat([]byte{byte(s + 1)}, shuffle.SecretSize)
	}
	h.tbl.Subscribe(ObserverFunc(func(_ string, m Message) {
		switch m := m.(type) {
		case ShuffleCommitRequest:
			for _, s := range m.Seats {
				h.tbl.SubmitReply(s, Reply{Kind: ReplyCommit, Data: shuffle.Commit(secrets[s])})
			}
		case ShuffleRevealRequest:
			for s := range m.Hashes {
				if s == shuffle.TableSeat {
					continue
				}
				data := secrets[s]
				if s == 2 {
					data = bytes.Repeat([]byte{0xEE}, shuffle.SecretSize)
				}
				h.tbl.SubmitReply(s, Reply{Kind: ReplyReveal, Data: data})
			}
		}
	}))

	h.start()

	started := messagesOf[HandStarted](h)
	require.Len(t, started, 1)
	assert.Equal(t, []int{0, 1, 3}, started[0].Seats)
	assert.Equal(t, SeatSittingOut, h.tbl.accounts[2].State)
	require.NotNil(t, h.tbl.transcript)
	assert.Equal(t, []int{2}, shuffle.Verify(*h.tbl.transcript))
	require.Len(t, h.tbl.alerts, 1)
	assert.Equal(t, AlertShuffleMismatch, h.tbl.alerts[0].Code)
	assert.False(t, h.tbl.accounts[2].MissedBlind)

	for h.tbl.handInProgress {
		h.act(h.tbl.engine.Turn(), holdem.ActionFold, 0)
	}
	// benched for that hand only, and owing nothing for it
	assert.Equal(t, SeatWaiting, h.tbl.accounts[2].State)
	assert.False(t, h.tbl.accounts[2].MissedBlind)
}

func TestSidebetsResolveAtHandEnd(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.stack("As Kd Ah Qc 2s 7h 9d Jc 3h")

	assert.ErrorIs(t, h.do(Event{Type: EventSidebet, Seat: 0, Kind: "pocket_pair", Amount: 10}), ErrNoHand)
	h.start()
	require.NoError(t, h.do(Event{Type: EventSidebet, Seat: 0, Kind: "pocket_pair", Amount: 10}))
	require.NoError(t, h.do(Event{Type: EventSidebet, Seat: 1, Kind: "pocket_pair", Amount: 10}))
	assert.ErrorIs(t, h.do(Event{Type: EventSidebet, Seat: 0, Kind: "lucky", Amount: 10}), ErrUnknownSidebet)
	assert.ErrorIs(t, h.do(Event{Type: EventSidebet, Seat: 0, Kind: "pocket_pair", Amount: 0}), ErrInvalidAmount)

	h.act(0, holdem.ActionFold, 0)
	h.flush()

	h.ledger.view(func(f *fakeLedger) {
		require.Len(t, f.sidebets, 2)
		require.Len(t, f.sbResults, 2)
		payouts := map[string]int64{}
		for _, r := range f.sbResults {
			payouts[r.BetID] = r.Payout
		}
		assert.Equal(t, int64(120), payouts[f.sidebets[0].ID])
		assert.Zero(t, payouts[f.sidebets[1].ID])
		assert.Equal(t, "preflop", f.sidebets[0].Street)
	})
}

func TestSidebetWindowCloses(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.SidebetWindow = time.Millisecond })
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()
	time.Sleep(5 * time.Millisecond)
	assert.ErrorIs(t, h.do(Event{Type: EventSidebet, Seat: 0, Kind: "pocket_pair", Amount: 10}), ErrSidebetClosed)
}

func TestTipsDeductedAtSettlement(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.start()

	require.NoError(t, h.do(Event{Type: EventTip, Seat: 1, Amount: 3}))
	assert.ErrorIs(t, h.do(Event{Type: EventTip, Seat: 1, Amount: 5000}), ErrInvalidAmount)
	h.act(0, holdem.ActionFold, 0)
	h.flush()

	res := h.tbl.lastResult
	require.NotNil(t, res)
	assert.Equal(t, int64(3), res.Tips)
	assert.Equal(t, int64(1002), res.End[1])
	assert.True(t, res.Conserved)
}

func TestChipsConservedOverManyHands(t *testing.T) {
	h := newHarness(t, nil)
	h.sit("alice", 0, 1000)
	h.sit("bob", 1, 1000)
	h.sit("carol", 2, 1000)

	for hand := 0; hand < 25; hand++ {
		h.start()
		for steps := 0; h.tbl.handInProgress; steps++ {
			require.Less(t, steps, 100)
			seat := h.tbl.engine.Turn()
			require.NotEqual(t, holdem.NoSeat, seat)
			action := holdem.ActionCall
			if h.tbl.engine.Actions(seat).Has(holdem.ActionCheck) {
				action = holdem.ActionCheck
			}
			h.act(seat, action, 0)
		}
		h.flush()
		require.True(t, h.tbl.lastResult.Conserved)

		var total int64
		for i := range h.tbl.accounts {
			total += h.tbl.accounts[i].Money
		}
		require.Equal(t, int64(3000), total)
	}
}
