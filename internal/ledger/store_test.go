package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLService {
	t.Helper()
	s, err := NewSQLiteService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()
	require.NoError(t, s.OpenAccount(ctx, "alice", "Alice", 1000))
	require.NoError(t, s.OpenAccount(ctx, "bob", "Bob", 500))
	return s
}

func TestOpenAccountDuplicate(t *testing.T) {
	s := newTestStore(t)
	err := s.OpenAccount(context.Background(), "alice", "again", 1)
	assert.ErrorIs(t, err, ErrDuplicate)

	u, err := s.GetUser(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, User{ID: "alice", Name: "Alice", Balance: 1000}, u)

	_, err = s.GetUser(context.Background(), "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDepositLeaveKeepsGlobalBalance(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Deposit(ctx, "t1", "alice", 300))
	require.NoError(t, s.Deposit(ctx, "t1", "alice", 100))
	u, _ := s.GetUser(ctx, "alice")
	assert.EqualValues(t, 600, u.Balance)

	total, err := s.GetGlobalBalance(ctx, "alice")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, total)

	assert.ErrorIs(t, s.Deposit(ctx, "t1", "alice", 601), ErrInsufficientFunds)
	assert.ErrorIs(t, s.Deposit(ctx, "t1", "alice", 0), ErrInvalidAmount)

	require.NoError(t, s.Leave(ctx, "t1", "alice", 450))
	total, _ = s.GetGlobalBalance(ctx, "alice")
	assert.EqualValues(t, 1050, total)
	u, _ = s.GetUser(ctx, "alice")
	assert.EqualValues(t, 1050, u.Balance)
}

func TestEndRoundSyncsSeatsAndIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.Deposit(ctx, "t1", "alice", 200))
	require.NoError(t, s.Deposit(ctx, "t1", "bob", 200))

	report := RoundReport{
		TableID: "t1",
		Round:   1,
		HandID:  "h1",
		Rake:    5,
		Players: []RoundPlayer{
			{UserID: "alice", Seat: 0, Start: 200, End: 295, Bet: 100, Win: 195},
			{UserID: "bob", Seat: 1, Start: 200, End: 100, Bet: 100},
		},
		Log: []string{"alice raise 100", "bob call 100"},
	}
	res, err := s.EndRound(ctx, report)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.False(t, res.Teardown())

	_, err = s.EndRound(ctx, report)
	require.NoError(t, err)

	a, _ := s.GetGlobalBalance(ctx, "alice")
	b, _ := s.GetGlobalBalance(ctx, "bob")
	assert.EqualValues(t, 800+295, a)
	assert.EqualValues(t, 300+100, b)
}

func TestEndRoundStatuses(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	res, err := s.EndRound(ctx, RoundReport{
		TableID:      "mtt-1",
		HandID:       "h1",
		TournamentID: "cup",
		Players: []RoundPlayer{
			{UserID: "alice", End: 3000},
			{UserID: "bob", End: 0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPause, res.Status)
	assert.Equal(t, []string{"mtt-1"}, res.Tables)

	require.NoError(t, s.CloseTable(ctx, "t9"))
	res, err = s.EndRound(ctx, RoundReport{TableID: "t9", HandID: "h2"})
	require.NoError(t, err)
	assert.True(t, res.Teardown())
	assert.Equal(t, StatusDeleteTable, res.Status)
}

func TestSidebetLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SubmitSidebet(ctx, Sidebet{ID: "sb1", TableID: "t1", HandID: "h1", UserID: "bob", Kind: "flush", Amount: 50}))
	require.NoError(t, s.SubmitSidebet(ctx, Sidebet{ID: "sb2", TableID: "t1", HandID: "h1", UserID: "bob", Kind: "pair", Amount: 20}))
	assert.ErrorIs(t, s.SubmitSidebet(ctx, Sidebet{ID: "sb1", UserID: "bob", Amount: 5}), ErrDuplicate)

	require.NoError(t, s.SubmitSidebetResult(ctx, SidebetResult{BetID: "sb1", Payout: 250}))
	require.NoError(t, s.SubmitSidebetResult(ctx, SidebetResult{BetID: "sb2", Refunded: true}))
	assert.ErrorIs(t, s.SubmitSidebetResult(ctx, SidebetResult{BetID: "sb1"}), ErrDuplicate)
	assert.ErrorIs(t, s.SubmitSidebetResult(ctx, SidebetResult{BetID: "missing"}), ErrNotFound)

	u, _ := s.GetUser(ctx, "bob")
	assert.EqualValues(t, 500-50-20+250+20, u.Balance)
}

func TestInsuranceAndTransfer(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SubmitInsurance(ctx, Insurance{ID: "i1", TableID: "t1", HandID: "h1", UserID: "alice", Premium: 40, Payout: 400}))
	require.NoError(t, s.WinInsurance(ctx, "i1", 400))
	assert.ErrorIs(t, s.WinInsurance(ctx, "i1", 400), ErrDuplicate)

	require.NoError(t, s.TransferBalance(ctx, "alice", "bob", 360))
	assert.ErrorIs(t, s.TransferBalance(ctx, "bob", "ghost", 1), ErrNotFound)
	assert.ErrorIs(t, s.TransferBalance(ctx, "bob", "alice", 10_000), ErrInsufficientFunds)

	a, _ := s.GetUser(ctx, "alice")
	b, _ := s.GetUser(ctx, "bob")
	assert.EqualValues(t, 1000, a.Balance)
	assert.EqualValues(t, 860, b.Balance)
}

func TestRebind(t *testing.T) {
	s := &SQLService{dialect: dialectPostgres}
	assert.Equal(t, "SELECT $1, $2 WHERE x = $3", s.rebind("SELECT ?, ? WHERE x = ?"))
	s.dialect = dialectSQLite
	assert.Equal(t, "SELECT ?", s.rebind("SELECT ?"))
}
