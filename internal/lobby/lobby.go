package lobby

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/decred/slog"

	"holdem-arena/internal/ledger"
	"holdem-arena/internal/table"
	"holdem-arena/internal/tournament"
)

var (
	ErrTableExists   = errors.New("table already exists")
	ErrTableNotFound = errors.New("table not found")
	ErrClosed        = errors.New("lobby closed")
)

const maxAlerts = 256

// Config holds what every table created by the lobby shares.
type Config struct {
	Ledger ledger.Service
	// Template is copied for every table; ID, Variant, Ledger, Bus and Log
	// are filled in by the lobby.
	Template table.Config
	// Blinds for tables QuickStart opens.
	Blinds table.BlindLevel
	Rake   table.RakePolicy

	Log           slog.Logger
	TableLog      slog.Logger
	TournamentLog slog.Logger
}

func (c *Config) validate() error {
	if c.Ledger == nil {
		return fmt.Errorf("ledger required")
	}
	if c.Template.MaxSeats == 0 {
		c.Template.MaxSeats = 6
	}
	if c.Template.MinBuyIn == 0 && c.Template.MaxBuyIn == 0 {
		c.Template.MinBuyIn, c.Template.MaxBuyIn = 5000, 20000
	}
	if c.Blinds.Big == 0 {
		c.Blinds = table.BlindLevel{Small: 50, Big: 100}
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	if c.TableLog == nil {
		c.TableLog = slog.Disabled
	}
	if c.TournamentLog == nil {
		c.TournamentLog = slog.Disabled
	}
	return nil
}

type entry struct {
	table *table.Table
	sched *tournament.Scheduler
}

// Lobby is the registry of live tables. Tables leave it when they stop.
type Lobby struct {
	cfg Config
	log slog.Logger
	bus *table.Bus

	mu     sync.RWMutex
	tables map[string]*entry
	nextID uint64
	closed bool
	alerts []table.Alert

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config) (*Lobby, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	l := &Lobby{
		cfg:    cfg,
		log:    cfg.Log,
		bus:    &table.Bus{},
		tables: make(map[string]*entry),
		ctx:    ctx,
		cancel: cancel,
	}
	l.bus.Subscribe(table.ObserverFunc(l.collectAlert))
	return l, nil
}

// Bus carries the messages of every table in the lobby.
func (l *Lobby) Bus() *table.Bus { return l.bus }

func (l *Lobby) collectAlert(_ string, m table.Message) {
	a, ok := m.(table.TableAlert)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.alerts = append(l.alerts, a.Alert)
	if len(l.alerts) > maxAlerts {
		l.alerts = l.alerts[len(l.alerts)-maxAlerts:]
	}
}

// CashSpec describes a cash table. Zero fields take the lobby defaults.
type CashSpec struct {
	ID       string
	Blinds   table.BlindLevel
	Rake     *table.RakePolicy
	MaxSeats int
	MinBuyIn int64
	MaxBuyIn int64
}

// TournamentSpec describes one tournament table and its level structure.
type TournamentSpec struct {
	ID            string
	TournamentID  string
	Entries       []tournament.Entry
	FinalDuration time.Duration
	Break         tournament.BreakRule
	StartingStack int64
	MaxSeats      int
}

func (l *Lobby) CreateCash(spec CashSpec) (*table.Table, error) {
	cfg := l.cfg.Template
	if spec.MaxSeats > 0 {
		cfg.MaxSeats = spec.MaxSeats
	}
	if spec.MinBuyIn > 0 {
		cfg.MinBuyIn = spec.MinBuyIn
	}
	if spec.MaxBuyIn > 0 {
		cfg.MaxBuyIn = spec.MaxBuyIn
	}
	blinds := l.cfg.Blinds
	if spec.Blinds.Big > 0 {
		blinds = spec.Blinds
	}
	rake := l.cfg.Rake
	if spec.Rake != nil {
		rake = *spec.Rake
	}
	cfg.Variant = table.Cash(blinds, rake)
	return l.add(spec.ID, cfg, nil)
}

// CreateTournament opens a tournament table whose blinds follow a
// scheduler started with it.
func (l *Lobby) CreateTournament(spec TournamentSpec) (*table.Table, error) {
	levels, err := tournament.BuildLevels(spec.Entries, spec.FinalDuration, spec.Break)
	if err != nil {
		return nil, fmt.Errorf("build levels: %w", err)
	}
	var sched *tournament.Scheduler
	sched, err = tournament.NewScheduler(tournament.Config{
		ID:     spec.TournamentID,
		Levels: levels,
		OnDone: func() { l.tournamentOver(sched) },
		Log:    l.cfg.TournamentLog,
	})
	if err != nil {
		return nil, err
	}

	cfg := l.cfg.Template
	cfg.TournamentID = spec.TournamentID
	cfg.Variant = table.Tournament(sched)
	if spec.MaxSeats > 0 {
		cfg.MaxSeats = spec.MaxSeats
	}
	if spec.StartingStack > 0 {
		cfg.MinBuyIn, cfg.MaxBuyIn = spec.StartingStack, spec.StartingStack
	}
	return l.add(spec.ID, cfg, sched)
}

func (l *Lobby) add(id string, cfg table.Config, sched *tournament.Scheduler) (*table.Table, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrClosed
	}
	if id == "" {
		l.nextID++
		id = fmt.Sprintf("table_%d", l.nextID)
	}
	if _, ok := l.tables[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrTableExists, id)
	}

	cfg.ID = id
	cfg.Ledger = l.cfg.Ledger
	cfg.Bus = l.bus
	cfg.Log = l.cfg.TableLog
	t, err := table.New(cfg)
	if err != nil {
		return nil, err
	}
	l.tables[id] = &entry{table: t, sched: sched}

	if sched != nil {
		sched.Watch(t)
		l.wg.Add(1)
		go func() {
			defer l.wg.Done()
			ctx, cancel := context.WithCancel(l.ctx)
			defer cancel()
			go func() {
				select {
				case <-t.Done():
					cancel()
				case <-ctx.Done():
				}
			}()
			if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.log.Warnf("tournament %s on table %s: %v", cfg.TournamentID, id, err)
			}
		}()
	}

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		<-t.Done()
		l.remove(id, t)
	}()

	l.log.Infof("created %s table %s", cfg.Variant.Kind, id)
	return t, nil
}

// tournamentOver closes the table of a finished tournament once its last
// hand has settled.
func (l *Lobby) tournamentOver(sched *tournament.Scheduler) {
	l.mu.RLock()
	var t *table.Table
	for _, e := range l.tables {
		if e.sched == sched {
			t = e.table
			break
		}
	}
	l.mu.RUnlock()
	if t == nil {
		return
	}
	l.log.Infof("table %s down to one player, closing", t.ID())
	if err := t.Close(); err != nil && !errors.Is(err, table.ErrTableClosed) {
		l.log.Warnf("close finished table %s: %v", t.ID(), err)
	}
}

func (l *Lobby) remove(id string, t *table.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.tables[id]; ok && e.table == t {
		delete(l.tables, id)
		l.log.Infof("table %s removed", id)
	}
}

// QuickStart seats userID at the first cash table with a free seat,
// opening a new table when none has one.
func (l *Lobby) QuickStart(userID string, buyIn int64) (*table.Table, int, error) {
	for _, t := range l.cashTables() {
		st, err := t.Status()
		if err != nil || st.Closing {
			continue
		}
		for _, s := range st.Seats {
			if s.State != table.SeatEmpty {
				continue
			}
			if err := t.SitDown(userID, s.Index, buyIn); err == nil {
				l.log.Debugf("quick start: %s joining table %s seat %d", userID, t.ID(), s.Index)
				return t, s.Index, nil
			} else if !errors.Is(err, table.ErrSeatTaken) {
				return nil, 0, err
			}
		}
	}

	t, err := l.CreateCash(CashSpec{})
	if err != nil {
		return nil, 0, err
	}
	if err := t.SitDown(userID, 0, buyIn); err != nil {
		return nil, 0, err
	}
	l.log.Debugf("quick start: %s opened table %s", userID, t.ID())
	return t, 0, nil
}

func (l *Lobby) cashTables() []*table.Table {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*table.Table, 0, len(l.tables))
	for _, id := range l.idsLocked() {
		if e := l.tables[id]; e.sched == nil {
			out = append(out, e.table)
		}
	}
	return out
}

func (l *Lobby) GetTable(tableID string) (*table.Table, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.tables[tableID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, tableID)
	}
	return e.table, nil
}

// Scheduler returns the level scheduler of a tournament table.
func (l *Lobby) Scheduler(tableID string) (*tournament.Scheduler, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.tables[tableID]
	if !ok || e.sched == nil {
		return nil, false
	}
	return e.sched, true
}

// ListTables returns all table IDs in order.
func (l *Lobby) ListTables() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.idsLocked()
}

func (l *Lobby) idsLocked() []string {
	ids := make([]string, 0, len(l.tables))
	for id := range l.tables {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Alerts returns recent operator alerts from every table, oldest first.
func (l *Lobby) Alerts() []table.Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]table.Alert(nil), l.alerts...)
}

// Close asks every table to close after its current hand and waits for
// them to stop, or for ctx.
func (l *Lobby) Close(ctx context.Context) error {
	l.mu.Lock()
	l.closed = true
	tables := make([]*table.Table, 0, len(l.tables))
	for _, e := range l.tables {
		tables = append(tables, e.table)
	}
	l.mu.Unlock()

	for _, t := range tables {
		if err := t.Close(); err != nil && !errors.Is(err, table.ErrTableClosed) {
			l.log.Warnf("close table %s: %v", t.ID(), err)
		}
	}

	done := make(chan struct{})
	go func() {
		for _, t := range tables {
			<-t.Done()
		}
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
		for _, t := range tables {
			t.Stop()
		}
	}
	l.cancel()
	l.wg.Wait()
	return err
}
