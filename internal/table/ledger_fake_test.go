package table

import (
	"context"
	"errors"
	"sync"

	"holdem-arena/internal/ledger"
)

// fakeLedger is an in-memory ledger.Service that records every call.
type fakeLedger struct {
	mu sync.Mutex

	balances map[string]int64
	atTable  map[string]int64

	deposits   []int64
	leaves     map[string]int64
	reports    []ledger.RoundReport
	sidebets   []ledger.Sidebet
	sbResults  []ledger.SidebetResult
	insurance  []ledger.Insurance
	insuranceW map[string]int64

	endErr error
	result ledger.RoundResult
}

func newFakeLedger(users ...string) *fakeLedger {
	f := &fakeLedger{
		balances:   make(map[string]int64),
		atTable:    make(map[string]int64),
		leaves:     make(map[string]int64),
		insuranceW: make(map[string]int64),
	}
	for _, u := range users {
		f.balances[u] = 100000
	}
	return f
}

func (f *fakeLedger) GetUser(_ context.Context, userID string) (ledger.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	bal, ok := f.balances[userID]
	if !ok {
		return ledger.User{}, ledger.ErrNotFound
	}
	return ledger.User{ID: userID, Name: userID, Balance: bal}, nil
}

func (f *fakeLedger) Deposit(_ context.Context, _ string, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.balances[userID] < amount {
		return ledger.ErrInsufficientFunds
	}
	f.balances[userID] -= amount
	f.atTable[userID] += amount
	f.deposits = append(f.deposits, amount)
	return nil
}

func (f *fakeLedger) Leave(_ context.Context, _ string, userID string, amount int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balances[userID] += amount
	f.atTable[userID] = 0
	f.leaves[userID] += amount
	return nil
}

func (f *fakeLedger) EndRound(_ context.Context, report ledger.RoundReport) (ledger.RoundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.endErr != nil {
		return ledger.RoundResult{}, f.endErr
	}
	f.reports = append(f.reports, report)
	for _, p := range report.Players {
		f.atTable[p.UserID] = p.End
	}
	res := f.result
	res.HandID = report.HandID
	return res, nil
}

func (f *fakeLedger) SubmitSidebet(_ context.Context, bet ledger.Sidebet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sidebets = append(f.sidebets, bet)
	return nil
}

func (f *fakeLedger) SubmitSidebetResult(_ context.Context, res ledger.SidebetResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sbResults = append(f.sbResults, res)
	return nil
}

func (f *fakeLedger) SubmitInsurance(_ context.Context, ins ledger.Insurance) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insurance = append(f.insurance, ins)
	return nil
}

func (f *fakeLedger) WinInsurance(_ context.Context, id string, payout int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.insuranceW[id] = payout
	return nil
}

func (f *fakeLedger) TransferBalance(context.Context, string, string, int64) error {
	return errors.New("not supported")
}

func (f *fakeLedger) GetGlobalBalance(_ context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balances[userID] + f.atTable[userID], nil
}

func (f *fakeLedger) Close() error { return nil }

func (f *fakeLedger) set(fn func(f *fakeLedger)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeLedger) view(fn func(f *fakeLedger)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}
