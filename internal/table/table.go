package table

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	"holdem-arena/card"
	"holdem-arena/holdem"
	"holdem-arena/internal/await"
	"holdem-arena/internal/ledger"
	"holdem-arena/internal/shuffle"
)

// HandEvaluator ranks hands for showdown and insurance.
type HandEvaluator interface {
	Score(hole, board []card.Card) int32
	Rank(hole, board []card.Card) holdem.HandRank
	Winners(hands map[int]holdem.HandRank) []int
}

type TimebankConfig struct {
	Initial time.Duration
	Cap     time.Duration
	Earn    time.Duration
	// FastAct is how quickly a seat must act to earn Earn.
	FastAct time.Duration
}

// Config contains table settings.
type Config struct {
	ID        string
	MaxSeats  int
	Limit     holdem.Limit
	Omaha     bool
	BurnCards bool
	MinBuyIn  int64
	MaxBuyIn  int64

	TurnTimeout time.Duration
	Timebank    TimebankConfig
	// HandDelay is the pause between a reconciled hand and the next deal.
	HandDelay time.Duration
	// AutoStart deals hands on the heartbeat; when false only StartHand does.
	AutoStart bool

	ShuffleCommit     bool
	ShuffleMinPlayers int
	HandshakeTimeout  time.Duration
	InsuranceTimeout  time.Duration
	SidebetWindow     time.Duration

	TournamentID string
	Variant      Variant

	Ledger    ledger.Service
	Evaluator HandEvaluator
	Sidebets  SidebetCatalog
	Bus       *Bus
	Log       slog.Logger
}

func (c *Config) validate() error {
	if c.ID == "" {
		return fmt.Errorf("table id required")
	}
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("max seats must be in [2,10], got %d", c.MaxSeats)
	}
	if c.MinBuyIn <= 0 || c.MaxBuyIn < c.MinBuyIn {
		return fmt.Errorf("invalid buy-in range %d-%d", c.MinBuyIn, c.MaxBuyIn)
	}
	if c.Ledger == nil {
		return fmt.Errorf("ledger required")
	}
	if c.TurnTimeout <= 0 {
		c.TurnTimeout = 15 * time.Second
	}
	if c.HandDelay <= 0 {
		c.HandDelay = 3 * time.Second
	}
	if c.ShuffleMinPlayers <= 0 {
		c.ShuffleMinPlayers = 4
	}
	if c.HandshakeTimeout <= 0 {
		c.HandshakeTimeout = 2 * time.Second
	}
	if c.InsuranceTimeout <= 0 {
		c.InsuranceTimeout = 5 * time.Second
	}
	if c.SidebetWindow <= 0 {
		c.SidebetWindow = 3 * time.Second
	}
	if c.Evaluator == nil {
		c.Evaluator = holdem.Evaluator{Omaha: c.Omaha}
	}
	if c.Sidebets == nil {
		c.Sidebets = DefaultCatalog()
	}
	if c.Bus == nil {
		c.Bus = &Bus{}
	}
	if c.Log == nil {
		c.Log = slog.Disabled
	}
	c.Variant.fill()
	return nil
}

// ReplyKind tags a participant reply so a late answer to one prompt is
// never taken for another.
type ReplyKind int

const (
	ReplyCommit ReplyKind = iota + 1
	ReplyReveal
	ReplyInsurance
)

// Reply is a participant's answer to a handshake or insurance prompt.
type Reply struct {
	Kind   ReplyKind
	Data   []byte
	Accept bool
}

type EventType int

const (
	EventSitDown EventType = iota
	EventStandUp
	EventBuyIn
	EventSitOut
	EventSitIn
	EventAction
	EventTip
	EventSidebet
	EventStartHand
	EventClose
	EventResume
	eventTimeout
	eventDeposited
	eventBoughtIn
	eventReconciled
	eventQuery
)

// Event is a message to the table actor.
type Event struct {
	Type     EventType
	Seat     int
	UserID   string
	Action   holdem.ActionType
	Amount   int64
	Kind     string
	Response chan error

	seq       uint64
	err       error
	result    ledger.RoundResult
	handID    string
	query     func()
	timestamp time.Time
}

// Table is one poker table. Every mutation runs on the actor goroutine
// started by New.
type Table struct {
	cfg Config
	log slog.Logger

	mu       sync.RWMutex
	engine   *holdem.Engine
	accounts []SeatAccount
	closed   bool
	stopOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc

	events  chan Event
	replies chan await.Reply[Reply]
	// quit is closed by stopLocked; done is closed once run has returned.
	quit    chan struct{}
	done    chan struct{}
	jobs    chan func(context.Context)

	// guards for ScheduleNewHand
	handInProgress     bool
	pendingErrorReport bool
	awaitingSettlement bool
	frozen             bool
	paused             bool
	closing            bool

	dealer     int
	handID     string
	handLog    []string
	startStack map[int]int64
	tips       map[int]int64
	nextHandAt time.Time

	turn turnTimer
	// deck builds the hand's deck from the shuffle seed.
	deck func(seed [32]byte) card.CardList

	transcript *shuffle.Transcript
	insurance  []policy
	sidebets   []placedSidebet
	sidebetEnd time.Time

	lastResult *HandResult
	lastReport *ledger.RoundReport
	alerts     []Alert
}

// New creates a table and starts its actor.
func New(cfg Config) (*Table, error) {
	t, err := newTable(cfg)
	if err != nil {
		return nil, err
	}
	go t.ledgerLoop()
	go t.run()
	t.log.Infof("table %s created (%s, seats=%d, buy-in %d-%d)", cfg.ID, t.cfg.Variant.Kind, cfg.MaxSeats, cfg.MinBuyIn, cfg.MaxBuyIn)
	return t, nil
}

func newTable(cfg Config) (*Table, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	holeCards := 2
	if cfg.Omaha {
		holeCards = 4
	}
	engine, err := holdem.NewEngine(holdem.Config{
		MaxSeats:  cfg.MaxSeats,
		Limit:     cfg.Limit,
		HoleCards: holeCards,
		BurnCards: cfg.BurnCards,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	t := &Table{
		cfg:      cfg,
		log:      cfg.Log,
		engine:   engine,
		accounts: make([]SeatAccount, cfg.MaxSeats),
		ctx:      ctx,
		cancel:   cancel,
		events:   make(chan Event, 256),
		replies:  make(chan await.Reply[Reply], 64),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		jobs:     make(chan func(context.Context), 256),
		dealer:   holdem.NoSeat,
		deck:     shuffle.Deck,
	}
	for i := range t.accounts {
		t.accounts[i].Index = i
	}
	t.turn.seat = holdem.NoSeat
	return t, nil
}

func (t *Table) ID() string { return t.cfg.ID }

func (t *Table) Kind() Kind { return t.cfg.Variant.Kind }

// run is the main actor loop.
func (t *Table) run() {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	defer close(t.done)

	for {
		select {
		case event := <-t.events:
			err := t.handleEvent(event)
			if event.Response != nil {
				event.Response <- err
			}
		case <-ticker.C:
			t.tick()
		case <-t.quit:
			t.log.Debugf("table %s actor stopped", t.cfg.ID)
			return
		}
	}
}

func (t *Table) handleEvent(e Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return ErrTableClosed
	}

	switch e.Type {
	case EventSitDown:
		return t.handleSitDown(e.UserID, e.Seat, e.Amount)
	case EventStandUp:
		return t.handleStandUp(e.Seat)
	case EventBuyIn:
		return t.handleBuyIn(e.Seat, e.Amount)
	case EventSitOut:
		return t.handleSitOut(e.Seat)
	case EventSitIn:
		return t.handleSitIn(e.Seat)
	case EventAction:
		return t.handleAction(e.Seat, e.Action, e.Amount)
	case EventTip:
		return t.handleTip(e.Seat, e.Amount)
	case EventSidebet:
		return t.handleSidebet(e.Seat, e.Kind, e.Amount)
	case EventStartHand:
		return t.scheduleNewHand()
	case EventClose:
		t.handleClose()
		return nil
	case EventResume:
		return t.handleResume()
	case eventTimeout:
		t.handleTimeout(e.seq)
		return nil
	case eventDeposited:
		t.handleDeposited(e.Seat, e.UserID, e.Amount, e.err)
		return nil
	case eventBoughtIn:
		t.handleBoughtIn(e.Seat, e.UserID, e.Amount, e.err)
		return nil
	case eventReconciled:
		t.handleReconciled(e.handID, e.result, e.err)
		return nil
	case eventQuery:
		e.query()
		return nil
	default:
		return fmt.Errorf("unknown event type: %d", e.Type)
	}
}

func (t *Table) tick() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed || !t.cfg.AutoStart || t.nextHandAt.IsZero() {
		return
	}
	if time.Now().Before(t.nextHandAt) {
		return
	}
	t.nextHandAt = time.Time{}
	switch err := t.scheduleNewHand(); err {
	case nil, ErrNotEnoughPlayers, ErrFrozen, ErrPaused, ErrTableClosed:
	default:
		// break, pending settlement: try again shortly
		t.log.Debugf("table %s: deal deferred: %v", t.cfg.ID, err)
		t.nextHandAt = time.Now().Add(time.Second)
	}
}

// post enqueues an internal event without waiting for it.
func (t *Table) post(e Event) {
	e.timestamp = time.Now()
	select {
	case t.events <- e:
	case <-t.quit:
	}
}

// SubmitEvent sends an event to the actor and waits for its result.
func (t *Table) SubmitEvent(e Event) error {
	e.timestamp = time.Now()
	if e.Response == nil {
		e.Response = make(chan error, 1)
	}

	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrTableClosed
	}

	select {
	case t.events <- e:
	case <-t.quit:
		return ErrTableClosed
	}

	// run replies before it exits, so an event that stopped the table
	// still gets its own result.
	select {
	case err := <-e.Response:
		return err
	case <-t.done:
		select {
		case err := <-e.Response:
			return err
		default:
			return ErrTableClosed
		}
	}
}

// SitDown reserves seat for userID. The seat is confirmed once the ledger
// accepts the buy-in, which is announced with SeatChanged.
func (t *Table) SitDown(userID string, seat int, buyIn int64) error {
	return t.SubmitEvent(Event{Type: EventSitDown, UserID: userID, Seat: seat, Amount: buyIn})
}

func (t *Table) StandUp(seat int) error {
	return t.SubmitEvent(Event{Type: EventStandUp, Seat: seat})
}

func (t *Table) BuyIn(seat int, amount int64) error {
	return t.SubmitEvent(Event{Type: EventBuyIn, Seat: seat, Amount: amount})
}

func (t *Table) SitOut(seat int) error {
	return t.SubmitEvent(Event{Type: EventSitOut, Seat: seat})
}

func (t *Table) SitIn(seat int) error {
	return t.SubmitEvent(Event{Type: EventSitIn, Seat: seat})
}

// ApplyAction is the only way a player changes hand state.
func (t *Table) ApplyAction(seat int, action holdem.ActionType, amount int64) error {
	return t.SubmitEvent(Event{Type: EventAction, Seat: seat, Action: action, Amount: amount})
}

// Tip queues a dealer tip, deducted when the hand settles.
func (t *Table) Tip(seat int, amount int64) error {
	return t.SubmitEvent(Event{Type: EventTip, Seat: seat, Amount: amount})
}

func (t *Table) PlaceSidebet(seat int, kind string, amount int64) error {
	return t.SubmitEvent(Event{Type: EventSidebet, Seat: seat, Kind: kind, Amount: amount})
}

// StartHand asks the table to deal now.
func (t *Table) StartHand() error {
	return t.SubmitEvent(Event{Type: EventStartHand})
}

// Close tears the table down after the current hand.
func (t *Table) Close() error {
	return t.SubmitEvent(Event{Type: EventClose})
}

// Resume lifts a pause, or re-sends the hand report that froze the table.
func (t *Table) Resume() error {
	return t.SubmitEvent(Event{Type: EventResume})
}

// SubmitReply delivers a handshake or insurance answer. Replies nobody is
// waiting for are dropped.
func (t *Table) SubmitReply(seat int, r Reply) {
	select {
	case t.replies <- await.Reply[Reply]{Seat: seat, Value: r}:
	default:
		t.log.Warnf("table %s: reply buffer full, dropped reply from seat %d", t.cfg.ID, seat)
	}
}

// Subscribe registers o for this table's messages.
func (t *Table) Subscribe(o Observer) func() {
	return t.cfg.Bus.Subscribe(o)
}

func (t *Table) publish(m Message) {
	t.cfg.Bus.publish(t.cfg.ID, m, func(p any) {
		t.log.Errorf("table %s: observer panic: %v", t.cfg.ID, p)
	})
}

// Stop shuts the actor down without settling anything.
func (t *Table) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *Table) stopLocked() {
	if t.closed {
		return
	}
	t.closed = true
	t.nextHandAt = time.Time{}
	t.stopTurnTimer()
	t.cancel()
	t.stopOnce.Do(func() {
		close(t.quit)
		close(t.jobs)
	})
}

func (t *Table) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Done is closed when the actor stops.
func (t *Table) Done() <-chan struct{} {
	return t.done
}

func (t *Table) account(seat int) *SeatAccount {
	if seat < 0 || seat >= len(t.accounts) {
		return nil
	}
	return &t.accounts[seat]
}

func (t *Table) seatChanged(a *SeatAccount) {
	t.publish(SeatChanged{Seat: a.Index, UserID: a.UserID, Money: a.Money, State: a.State})
}

func (t *Table) raiseAlert(code AlertCode, format string, args ...any) {
	a := newAlert(t.cfg.ID, code, fmt.Sprintf(format, args...))
	t.alerts = append(t.alerts, a)
	t.publish(TableAlert{Alert: a})
}

// dealSoon schedules the next deal when enough seats are ready.
func (t *Table) dealSoon(delay time.Duration) {
	if t.handInProgress || t.closed || !t.cfg.AutoStart {
		return
	}
	ready := 0
	for i := range t.accounts {
		if t.accounts[i].dealable() || t.accounts[i].PendingBuyIn > 0 && t.accounts[i].State == SeatWaiting {
			ready++
		}
	}
	if ready < 2 {
		return
	}
	at := time.Now().Add(delay)
	if t.nextHandAt.IsZero() || at.Before(t.nextHandAt) {
		t.nextHandAt = at
	}
}
