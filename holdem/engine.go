package holdem

import (
	"fmt"
	"sync"

	"holdem-arena/card"
)

// Engine is the betting and card state machine for one hand at a time.
// All exported methods are safe for concurrent use; the table actor is the
// only writer in practice.
type Engine struct {
	cfg Config

	mu sync.RWMutex

	seats []HandContext
	round uint64

	street     Street
	pot        int64
	streetPot  int64
	minBet     int64
	legalRaise int64
	smallBlind int64
	bigBlind   int64

	dealer int
	sb     int
	bb     int
	turn   int

	deck   card.CardList
	board  []card.Card
	burned []card.Card

	// lastRaiser made the last full bet or raise this street.
	lastRaiser int
	// raisedBySmall is barred from re-raising after a short all-in until a
	// full raise reopens the action.
	raisedBySmall int
	// aggressor is the last seat to increase the bet this street.
	aggressor int

	actions []ActionRecord
}

func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		cfg:   cfg,
		seats: make([]HandContext, cfg.MaxSeats),
	}
	e.reset()
	return e, nil
}

func (e *Engine) Config() Config {
	return e.cfg
}

// Reset clears all hand state. Start implies Reset.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.reset()
}

func (e *Engine) reset() {
	for i := range e.seats {
		e.seats[i].reset(i)
	}
	e.street = StreetNone
	e.pot, e.streetPot = 0, 0
	e.minBet, e.legalRaise = 0, 0
	e.smallBlind, e.bigBlind = 0, 0
	e.dealer, e.sb, e.bb, e.turn = NoSeat, NoSeat, NoSeat, NoSeat
	e.deck = nil
	e.board = nil
	e.burned = nil
	e.lastRaiser, e.raisedBySmall, e.aggressor = NoSeat, NoSeat, NoSeat
	e.actions = nil
}

// Start resets the engine and deals a new hand: seats with a positive stack
// play, antes and dead money are posted, then the blinds, then hole cards.
func (e *Engine) Start(seats []SeatEntry, b Blinds, deck []card.Card) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.reset()
	if b.Big <= 0 || b.Small < 0 || b.Small > b.Big {
		return fmt.Errorf("invalid blinds: sb=%d bb=%d", b.Small, b.Big)
	}
	if !e.validSeat(b.Dealer) {
		return ErrInvalidState(fmt.Sprintf("dealer seat %d out of range", b.Dealer))
	}

	playing := 0
	for _, s := range seats {
		if !e.validSeat(s.Seat) {
			return ErrInvalidState(fmt.Sprintf("seat %d out of range", s.Seat))
		}
		h := &e.seats[s.Seat]
		if h.Playing {
			return ErrInvalidState(fmt.Sprintf("seat %d listed twice", s.Seat))
		}
		if s.Stack <= 0 || s.Ante < 0 || s.Dead < 0 {
			continue
		}
		h.Playing = true
		h.Stack = s.Stack
		playing++
	}
	if playing < 2 {
		e.reset()
		return ErrNotEnoughPlayers
	}
	need := playing*e.cfg.HoleCards + 5
	if e.cfg.BurnCards {
		need++
	}
	if len(deck) < need {
		e.reset()
		return fmt.Errorf("%w: need %d, have %d", ErrInsufficientCards, need, len(deck))
	}

	sb, bb := b.SB, b.BB
	if sb == NoSeat {
		if playing == 2 && e.seats[b.Dealer].Playing {
			sb = b.Dealer
		} else {
			sb = e.nextPlaying(b.Dealer)
		}
	}
	if bb == NoSeat {
		bb = e.nextPlaying(sb)
	}
	if !e.validSeat(sb) || !e.validSeat(bb) || !e.seats[sb].Playing || !e.seats[bb].Playing || sb == bb {
		e.reset()
		return ErrInvalidState(fmt.Sprintf("bad blind seats sb=%d bb=%d", sb, bb))
	}

	e.round++
	e.deck = card.CardList(deck).Clone()
	e.street = StreetPreFlop
	e.smallBlind, e.bigBlind = b.Small, b.Big
	e.dealer, e.sb, e.bb = b.Dealer, sb, bb

	for _, s := range seats {
		if !e.validSeat(s.Seat) || !e.seats[s.Seat].Playing {
			continue
		}
		e.postForced(s.Seat, s.Ante, ActionAnte)
		e.postForced(s.Seat, s.Dead, ActionBlind)
	}
	if e.seats[sb].CanAct() {
		e.bet(sb, b.Small, ActionBlind)
	}
	if e.seats[bb].CanAct() {
		e.bet(bb, b.Big, ActionBlind)
	}
	e.minBet = b.Big
	e.legalRaise = 0

	e.dealHoleCards()

	e.turn = e.nextActor(bb)
	if e.streetComplete() {
		e.turn = NoSeat
	}
	return nil
}

// postForced moves ante or dead money into the pot. It never counts as a bet.
func (e *Engine) postForced(seat int, amount int64, kind ActionType) {
	h := &e.seats[seat]
	if amount <= 0 || h.Stack == 0 {
		return
	}
	if amount > h.Stack {
		amount = h.Stack
	}
	h.Stack -= amount
	if kind == ActionAnte {
		h.Ante += amount
	} else {
		h.Dead += amount
	}
	if h.Stack == 0 {
		h.AllIn = true
	}
	e.pot += amount
	e.streetPot += amount
	e.actions = append(e.actions, ActionRecord{Street: e.street, Seat: seat, Action: kind, Amount: amount})
}

func (e *Engine) dealHoleCards() {
	order := make([]int, 0, len(e.seats))
	for i, seat := 0, e.sb; i < len(e.seats); i, seat = i+1, (seat+1)%len(e.seats) {
		if e.seats[seat].Playing {
			order = append(order, seat)
		}
	}
	for round := 0; round < e.cfg.HoleCards; round++ {
		for _, seat := range order {
			e.seats[seat].Hole = append(e.seats[seat].Hole, e.deck.PopCard())
		}
	}
}

// Bet puts amount more chips in for seat. With ActionNone the action is
// inferred from the amount. An amount at or above the stack is an all-in.
// On error nothing is mutated.
func (e *Engine) Bet(seat int, amount int64, action ActionType) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if action == ActionFold {
		return e.fold(seat)
	}
	if action == ActionBlind || action == ActionAnte {
		return fmt.Errorf("%w: %s is posted by the engine", ErrIllegalBet, action)
	}
	return e.bet(seat, amount, action)
}

func (e *Engine) bet(seat int, amount int64, action ActionType) error {
	if !e.street.Betting() {
		return ErrHandEnded
	}
	if !e.validSeat(seat) || !e.seats[seat].Playing {
		return ErrSeatNotInHand
	}
	h := &e.seats[seat]
	if !h.CanAct() {
		return ErrInvalidState(fmt.Sprintf("seat %d cannot act", seat))
	}

	call := e.minBet - h.Bet
	if call < 0 {
		call = 0
	}
	switch action {
	case ActionCheck:
		if call > 0 {
			return fmt.Errorf("%w: cannot check facing %d", ErrIllegalBet, call)
		}
		amount = 0
	case ActionCall:
		amount = call
	case ActionAllIn:
		amount = h.Stack
	}
	if amount < 0 {
		return fmt.Errorf("%w: negative amount", ErrIllegalBet)
	}

	if action == ActionBlind {
		if amount > h.Stack {
			amount = h.Stack
		}
	} else if amount >= h.Stack {
		if h.Stack > call && e.raisedBySmall == seat {
			return fmt.Errorf("%w: action not reopened after short all-in", ErrIllegalBet)
		}
		if e.cfg.Limit == PotLimit && h.Stack > call && h.Stack > e.potLimitMax(call) {
			return fmt.Errorf("%w: pot limit is %d", ErrIllegalBet, e.potLimitMax(call))
		}
		amount = h.Stack
		action = ActionAllIn
	} else {
		switch {
		case amount == 0:
			if call > 0 {
				return fmt.Errorf("%w: must call %d or fold", ErrIllegalBet, call)
			}
			action = ActionCheck
		case amount < call:
			return fmt.Errorf("%w: call is %d, got %d", ErrIllegalBet, call, amount)
		case amount == call:
			action = ActionCall
		default:
			if e.raisedBySmall == seat {
				return fmt.Errorf("%w: action not reopened after short all-in", ErrIllegalBet)
			}
			if min := call + e.minIncrement(); amount < min {
				return fmt.Errorf("%w: raise must be at least %d, got %d", ErrIllegalBet, min, amount)
			}
			if e.cfg.Limit == PotLimit {
				if max := e.potLimitMax(call); amount > max {
					return fmt.Errorf("%w: pot limit is %d, got %d", ErrIllegalBet, max, amount)
				}
			}
			if e.minBet == 0 {
				action = ActionBet
			} else {
				action = ActionRaise
			}
		}
	}

	h.Stack -= amount
	h.Bet += amount
	h.TotalBet += amount
	h.LastBet = amount
	if h.Stack == 0 {
		h.AllIn = true
	}
	if action != ActionBlind {
		h.LastAction = action
	}
	e.pot += amount
	e.streetPot += amount

	if action != ActionBlind {
		if raise := h.Bet - e.minBet; raise > 0 {
			if raise >= e.minIncrement() {
				e.legalRaise = raise
				e.lastRaiser = seat
				e.raisedBySmall = NoSeat
			} else if e.lastRaiser != seat {
				e.raisedBySmall = e.lastRaiser
			}
			e.minBet = h.Bet
			e.aggressor = seat
		}
	}

	e.actions = append(e.actions, ActionRecord{Street: e.street, Seat: seat, Action: action, Amount: amount, BetTo: h.Bet})
	return nil
}

// minIncrement is the smallest legal raise over the call.
func (e *Engine) minIncrement() int64 {
	if e.legalRaise > e.bigBlind {
		return e.legalRaise
	}
	return e.bigBlind
}

func (e *Engine) potLimitMax(call int64) int64 {
	return e.pot + 2*call
}

// Fold removes seat from the hand. When every remaining contender is all-in
// below the nominal min bet, min bet is clamped to the largest contribution.
func (e *Engine) Fold(seat int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fold(seat)
}

func (e *Engine) fold(seat int) error {
	if !e.street.Betting() {
		return ErrHandEnded
	}
	if !e.validSeat(seat) || !e.seats[seat].Playing {
		return ErrSeatNotInHand
	}
	h := &e.seats[seat]
	if !h.CanAct() {
		return ErrInvalidState(fmt.Sprintf("seat %d cannot fold", seat))
	}
	h.Folded = true
	h.DeadCard = true
	h.LastAction = ActionFold
	e.actions = append(e.actions, ActionRecord{Street: e.street, Seat: seat, Action: ActionFold, BetTo: h.Bet})

	var maxBet int64
	allAllIn, contenders := true, 0
	for i := range e.seats {
		c := &e.seats[i]
		if !c.Live() {
			continue
		}
		contenders++
		if !c.AllIn {
			allAllIn = false
			break
		}
		if c.Bet > maxBet {
			maxBet = c.Bet
		}
	}
	if contenders > 0 && allAllIn && maxBet < e.minBet {
		e.minBet = maxBet
	}
	return nil
}

// NextTurn moves the turn clockwise to the next seat that can act and
// returns it, or NoSeat.
func (e *Engine) NextTurn() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	from := e.turn
	if from == NoSeat {
		from = e.dealer
	}
	e.turn = e.nextActor(from)
	return e.turn
}

// CheckState advances the hand when the street is settled. It returns true
// when the street changed.
func (e *Engine) CheckState() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.street.Betting() {
		return false
	}
	if e.liveCount() <= 1 {
		e.returnUncalled()
		e.street = StreetShowdown
		e.turn = NoSeat
		return true
	}
	if !e.streetComplete() {
		return false
	}
	e.returnUncalled()
	if e.street == StreetRiver {
		e.street = StreetShowdown
		e.turn = NoSeat
		return true
	}

	e.street++
	e.streetPot = 0
	e.minBet, e.legalRaise = 0, 0
	e.lastRaiser, e.raisedBySmall, e.aggressor = NoSeat, NoSeat, NoSeat
	for i := range e.seats {
		h := &e.seats[i]
		h.Bet = 0
		if h.CanAct() {
			h.LastAction = ActionNone
			h.LastBet = 0
		}
	}
	switch e.street {
	case StreetFlop:
		if e.cfg.BurnCards {
			e.burned = append(e.burned, e.deck.PopCard())
		}
		cards, _ := e.deck.PopCards(3)
		e.board = append(e.board, cards...)
	case StreetTurn, StreetRiver:
		e.board = append(e.board, e.deck.PopCard())
	}

	e.turn = e.nextActor(e.dealer)
	if e.streetComplete() {
		e.turn = NoSeat
	}
	return true
}

// streetComplete reports whether no further decision is owed this street.
func (e *Engine) streetComplete() bool {
	var actors []*HandContext
	for i := range e.seats {
		if e.seats[i].CanAct() {
			actors = append(actors, &e.seats[i])
		}
	}
	switch len(actors) {
	case 0:
		return true
	case 1:
		return actors[0].Bet >= e.minBet
	}
	for _, h := range actors {
		if h.LastAction == ActionNone || h.Bet != e.minBet {
			return false
		}
	}
	return true
}

// uncalled finds a unique top bet this street that nobody can still answer.
func (e *Engine) uncalled() (int, int64) {
	top, first, second := NoSeat, int64(0), int64(0)
	for i := range e.seats {
		h := &e.seats[i]
		if !h.Playing {
			continue
		}
		switch {
		case h.Bet > first:
			second = first
			first = h.Bet
			top = i
		case h.Bet > second:
			second = h.Bet
		}
	}
	if top == NoSeat || first == second || !e.seats[top].Live() {
		return NoSeat, 0
	}
	for i := range e.seats {
		if i != top && e.seats[i].CanAct() {
			return NoSeat, 0
		}
	}
	return top, first - second
}

func (e *Engine) returnUncalled() {
	seat, amount := e.uncalled()
	if amount <= 0 {
		return
	}
	h := &e.seats[seat]
	h.Stack += amount
	h.Bet -= amount
	h.TotalBet -= amount
	h.AllIn = false
	e.pot -= amount
	e.streetPot -= amount
	if e.minBet > h.Bet {
		e.minBet = h.Bet
	}
}

// ReturnBet reports the uncalled excess that would go back to its owner.
func (e *Engine) ReturnBet() (int, int64) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.uncalled()
}

// Actions lists what seat may do now.
func (e *Engine) Actions(seat int) ActionSet {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if !e.street.Betting() || !e.validSeat(seat) || !e.seats[seat].CanAct() {
		return ActionSet{}
	}
	h := &e.seats[seat]
	call := e.minBet - h.Bet
	if call < 0 {
		call = 0
	}
	if call > h.Stack {
		call = h.Stack
	}
	set := ActionSet{Call: call, Actions: []ActionType{ActionFold}}
	if call == 0 {
		set.Actions = append(set.Actions, ActionCheck)
	} else if call < h.Stack {
		set.Actions = append(set.Actions, ActionCall)
	}

	opponents := false
	for i := range e.seats {
		if i != seat && e.seats[i].CanAct() {
			opponents = true
			break
		}
	}
	if h.Stack > call && opponents && e.raisedBySmall != seat {
		minR := call + e.minIncrement()
		maxR := h.Stack
		if e.cfg.Limit == PotLimit {
			if pl := e.potLimitMax(call); pl < maxR {
				maxR = pl
			}
		}
		if minR > h.Stack {
			minR = h.Stack
		}
		if minR <= maxR {
			set.MinRaise, set.MaxRaise = minR, maxR
			if e.minBet == 0 {
				set.Actions = append(set.Actions, ActionBet)
			} else {
				set.Actions = append(set.Actions, ActionRaise)
			}
		}
	}
	switch {
	case h.Stack <= call:
		set.Actions = append(set.Actions, ActionAllIn)
	case e.raisedBySmall == seat:
	case e.cfg.Limit == NoLimit || h.Stack <= e.potLimitMax(call):
		set.Actions = append(set.Actions, ActionAllIn)
	}
	return set
}

func (e *Engine) validSeat(seat int) bool {
	return seat >= 0 && seat < len(e.seats)
}

func (e *Engine) nextPlaying(from int) int {
	n := len(e.seats)
	for i := 1; i <= n; i++ {
		seat := (from + i + n) % n
		if e.seats[seat].Playing {
			return seat
		}
	}
	return NoSeat
}

// nextActor scans clockwise from the seat after from, wrapping back to from.
func (e *Engine) nextActor(from int) int {
	n := len(e.seats)
	if from < 0 {
		from = n - 1
	}
	for i := 1; i <= n; i++ {
		seat := (from + i) % n
		if e.seats[seat].CanAct() {
			return seat
		}
	}
	return NoSeat
}

func (e *Engine) liveCount() int {
	n := 0
	for i := range e.seats {
		if e.seats[i].Live() {
			n++
		}
	}
	return n
}
