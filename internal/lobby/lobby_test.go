package lobby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"holdem-arena/internal/ledger"
	"holdem-arena/internal/table"
	"holdem-arena/internal/tournament"
)

func newTestLobby(t *testing.T) *Lobby {
	t.Helper()
	store, err := ledger.NewSQLiteService(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	for _, u := range []string{"alice", "bob"} {
		require.NoError(t, store.OpenAccount(context.Background(), u, u, 10000))
	}

	l, err := New(Config{
		Ledger: store,
		Template: table.Config{
			MaxSeats:    2,
			MinBuyIn:    100,
			MaxBuyIn:    1000,
			TurnTimeout: time.Minute,
		},
		Blinds: table.BlindLevel{Small: 5, Big: 10},
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = l.Close(ctx)
	})
	return l
}

func TestCreateAndLookupTables(t *testing.T) {
	l := newTestLobby(t)

	_, err := l.CreateCash(CashSpec{ID: "b"})
	require.NoError(t, err)
	tbl, err := l.CreateCash(CashSpec{ID: "a", Blinds: table.BlindLevel{Small: 1, Big: 2}})
	require.NoError(t, err)
	assert.Equal(t, table.KindCash, tbl.Kind())

	_, err = l.CreateCash(CashSpec{ID: "a"})
	assert.ErrorIs(t, err, ErrTableExists)

	assert.Equal(t, []string{"a", "b"}, l.ListTables())
	got, err := l.GetTable("a")
	require.NoError(t, err)
	assert.Same(t, tbl, got)
	_, err = l.GetTable("zzz")
	assert.ErrorIs(t, err, ErrTableNotFound)
	_, ok := l.Scheduler("a")
	assert.False(t, ok)
}

func TestQuickStartFillsThenOpens(t *testing.T) {
	l := newTestLobby(t)

	t1, seat, err := l.QuickStart("alice", 500)
	require.NoError(t, err)
	assert.Equal(t, 0, seat)

	t2, seat, err := l.QuickStart("bob", 500)
	require.NoError(t, err)
	assert.Same(t, t1, t2)
	assert.Equal(t, 1, seat)

	require.Eventually(t, func() bool {
		st, err := t1.Status()
		return err == nil && st.Seats[0].State == table.SeatWaiting && st.Seats[1].State == table.SeatWaiting
	}, 3*time.Second, 10*time.Millisecond)

	t3, _, err := l.QuickStart("carol", 500)
	require.NoError(t, err)
	assert.NotSame(t, t1, t3)
	assert.Len(t, l.ListTables(), 2)
}

func TestTournamentTableFollowsScheduler(t *testing.T) {
	l := newTestLobby(t)
	now := time.Now()

	tbl, err := l.CreateTournament(TournamentSpec{
		ID:           "final",
		TournamentID: "trn-1",
		Entries: []tournament.Entry{
			{Start: now.Add(-time.Minute), SmallBlind: 25, BigBlind: 50},
			{Start: now.Add(time.Hour), SmallBlind: 50, BigBlind: 100},
		},
		FinalDuration: time.Hour,
		StartingStack: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, table.KindTournament, tbl.Kind())

	sched, ok := l.Scheduler("final")
	require.True(t, ok)
	blinds, onLevel := sched.Current()
	assert.True(t, onLevel)
	assert.Equal(t, int64(50), blinds.Big)

	_, err = l.CreateTournament(TournamentSpec{ID: "bad"})
	assert.Error(t, err)
}

func TestFinishedTournamentClosesItsTable(t *testing.T) {
	l := newTestLobby(t)
	now := time.Now()
	tbl, err := l.CreateTournament(TournamentSpec{
		ID:            "heads-up",
		TournamentID:  "trn-2",
		Entries:       []tournament.Entry{{Start: now.Add(-time.Minute), SmallBlind: 25, BigBlind: 50}},
		FinalDuration: time.Hour,
		StartingStack: 1000,
	})
	require.NoError(t, err)

	require.NoError(t, tbl.SitDown("alice", 0, 1000))
	require.NoError(t, tbl.SitDown("bob", 1, 1000))
	require.Eventually(t, func() bool {
		n, err := tbl.ActivePlayers()
		return err == nil && n == 2
	}, 3*time.Second, 10*time.Millisecond)

	// one poll must see both players before the table counts as started
	time.Sleep(1500 * time.Millisecond)
	sched, ok := l.Scheduler("heads-up")
	require.True(t, ok)
	assert.False(t, sched.Finished())

	require.NoError(t, tbl.StandUp(1))
	select {
	case <-tbl.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("finished tournament table still running")
	}
	assert.True(t, sched.Finished())
	require.Eventually(t, func() bool { return len(l.ListTables()) == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestClosedTablesLeaveTheLobby(t *testing.T) {
	l := newTestLobby(t)
	tbl, err := l.CreateCash(CashSpec{ID: "gone"})
	require.NoError(t, err)

	require.NoError(t, tbl.Close())
	require.Eventually(t, func() bool { return len(l.ListTables()) == 0 }, 3*time.Second, 10*time.Millisecond)
}

func TestAlertsAreCollected(t *testing.T) {
	l := newTestLobby(t)
	for i := 0; i < maxAlerts+10; i++ {
		l.collectAlert("t", table.TableAlert{Alert: table.Alert{ID: "x", Code: table.AlertConservation}})
	}
	l.collectAlert("t", table.HandEnded{})
	assert.Len(t, l.Alerts(), maxAlerts)
}

func TestCloseStopsEverything(t *testing.T) {
	l := newTestLobby(t)
	_, err := l.CreateCash(CashSpec{})
	require.NoError(t, err)
	_, err = l.CreateCash(CashSpec{})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, l.Close(ctx))

	_, err = l.CreateCash(CashSpec{})
	assert.ErrorIs(t, err, ErrClosed)
	assert.Empty(t, l.ListTables())
}
