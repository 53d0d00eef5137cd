package table

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"holdem-arena/card"
	"holdem-arena/holdem"
	"holdem-arena/internal/shuffle"
)

// Message is the closed set of lifecycle notifications a table emits.
type Message interface {
	isMessage()
}

type SeatChanged struct {
	Seat   int
	UserID string
	Money  int64
	State  SeatState
}

type HandStarted struct {
	HandID     string
	Round      uint64
	Dealer     int
	SB         int
	BB         int
	SmallBlind int64
	BigBlind   int64
	Ante       int64
	Seats      []int
}

type TurnChanged struct {
	Seat     int
	Actions  holdem.ActionSet
	Deadline time.Time
	Timebank bool
}

type ActionApplied struct {
	Seat   int
	Action holdem.ActionType
	Amount int64
	BetTo  int64
	Pot    int64
	Auto   bool
}

type ActionRejected struct {
	Seat   int
	Action holdem.ActionType
	Amount int64
	Reason string
}

type StateChanged struct {
	Street holdem.Street
	Board  []card.Card
}

// PotResult is how one pot was split.
type PotResult struct {
	Amount   int64
	Rake     int64
	Eligible []int
	Winners  []int
	Shares   map[int]int64
}

type HandResult struct {
	HandID    string
	Round     uint64
	Board     []card.Card
	Pots      []PotResult
	Rake      int64
	Tips      int64
	Reveal    []int
	Ranks     map[int]holdem.HandRank
	Start     map[int]int64
	End       map[int]int64
	Conserved bool
}

type SidebetWindow struct {
	Street   holdem.Street
	Deadline time.Time
}

type InsuranceOffer struct {
	Seat        int
	Probability float64
	Outs        int
	Runouts     int
	Premium     int64
	Payout      int64
	Deadline    time.Time
}

type ShowCards struct {
	Seat  int
	Cards []card.Card
	Rank  holdem.HandRank
}

type MuckCards struct {
	Seat int
}

type HandEnded struct {
	HandID string
	Round  uint64
}

type ShuffleCommitRequest struct {
	Seats    []int
	Deadline time.Time
}

type ShuffleRevealRequest struct {
	Hashes   map[int][]byte
	Deadline time.Time
}

type ShuffleTranscript struct {
	HandID     string
	Transcript shuffle.Transcript
}

type TableAlert struct {
	Alert Alert
}

func (SeatChanged) isMessage()          {}
func (HandStarted) isMessage()          {}
func (TurnChanged) isMessage()          {}
func (ActionApplied) isMessage()        {}
func (ActionRejected) isMessage()       {}
func (StateChanged) isMessage()         {}
func (HandResult) isMessage()           {}
func (SidebetWindow) isMessage()        {}
func (InsuranceOffer) isMessage()       {}
func (ShowCards) isMessage()            {}
func (MuckCards) isMessage()            {}
func (HandEnded) isMessage()            {}
func (ShuffleCommitRequest) isMessage() {}
func (ShuffleRevealRequest) isMessage() {}
func (ShuffleTranscript) isMessage()    {}
func (TableAlert) isMessage()           {}

// Observer receives every message of every table it is registered on.
// Notify runs on the table's goroutine and must not block.
type Observer interface {
	Notify(tableID string, m Message)
}

type ObserverFunc func(tableID string, m Message)

func (f ObserverFunc) Notify(tableID string, m Message) { f(tableID, m) }

// Bus fans messages out to registered observers in registration order.
type Bus struct {
	mu        sync.RWMutex
	nextID    int
	observers []registered
}

type registered struct {
	id int
	o  Observer
}

// Subscribe registers o and returns a function that removes it.
func (b *Bus) Subscribe(o Observer) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, registered{id: id, o: o})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, r := range b.observers {
			if r.id == id {
				b.observers = append(b.observers[:i], b.observers[i+1:]...)
				return
			}
		}
	}
}

func (b *Bus) publish(tableID string, m Message, onPanic func(any)) {
	b.mu.RLock()
	obs := make([]registered, len(b.observers))
	copy(obs, b.observers)
	b.mu.RUnlock()
	for _, r := range obs {
		func() {
			defer func() {
				if p := recover(); p != nil && onPanic != nil {
					onPanic(p)
				}
			}()
			r.o.Notify(tableID, m)
		}()
	}
}

// AlertCode classifies operator alerts.
type AlertCode string

const (
	AlertConservation    AlertCode = "conservation"
	AlertReconnectFailed AlertCode = "reconnect_failed"
	AlertShuffleMismatch AlertCode = "shuffle_mismatch"
)

type Alert struct {
	ID      string
	TableID string
	Code    AlertCode
	Message string
	At      time.Time
}

func newAlert(tableID string, code AlertCode, msg string) Alert {
	return Alert{ID: uuid.NewString(), TableID: tableID, Code: code, Message: msg, At: time.Now().UTC()}
}
