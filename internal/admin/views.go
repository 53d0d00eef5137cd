package admin

import (
	"time"

	"holdem-arena/card"
	"holdem-arena/holdem"
	"holdem-arena/internal/table"
)

type tableSummary struct {
	ID             string `json:"id"`
	Kind           string `json:"kind"`
	Players        int    `json:"players"`
	HandInProgress bool   `json:"hand_in_progress"`
	Frozen         bool   `json:"frozen"`
	Paused         bool   `json:"paused"`
	Closing        bool   `json:"closing"`
}

func newTableSummary(st table.TableStatus) tableSummary {
	players := 0
	for _, s := range st.Seats {
		if s.UserID != "" {
			players++
		}
	}
	return tableSummary{
		ID:             st.ID,
		Kind:           st.Kind.String(),
		Players:        players,
		HandInProgress: st.HandInProgress,
		Frozen:         st.Frozen,
		Paused:         st.Paused,
		Closing:        st.Closing,
	}
}

type seatView struct {
	Seat         int    `json:"seat"`
	UserID       string `json:"user_id,omitempty"`
	State        string `json:"state"`
	Money        int64  `json:"money"`
	PendingBuyIn int64  `json:"pending_buy_in,omitempty"`
	MissedBlind  bool   `json:"missed_blind,omitempty"`
	Leaving      bool   `json:"leaving,omitempty"`
	TimeBankMs   int64  `json:"time_bank_ms"`
}

type tableView struct {
	tableSummary
	HandID             string     `json:"hand_id,omitempty"`
	Street             string     `json:"street,omitempty"`
	Round              uint64     `json:"round"`
	Pot                int64      `json:"pot"`
	Board              []string   `json:"board"`
	Turn               int        `json:"turn"`
	Dealer             int        `json:"dealer"`
	AwaitingSettlement bool       `json:"awaiting_settlement"`
	Seats              []seatView `json:"seats"`
}

func newTableView(st table.TableStatus) tableView {
	v := tableView{
		tableSummary:       newTableSummary(st),
		HandID:             st.HandID,
		Round:              st.Round,
		Pot:                st.Pot,
		Board:              cardStrings(st.Board),
		Turn:               st.Turn,
		Dealer:             st.Dealer,
		AwaitingSettlement: st.AwaitingSettlement,
		Seats:              make([]seatView, 0, len(st.Seats)),
	}
	if st.HandID != "" {
		v.Street = st.Street.String()
	}
	for _, s := range st.Seats {
		v.Seats = append(v.Seats, seatView{
			Seat:         s.Index,
			UserID:       s.UserID,
			State:        s.State.String(),
			Money:        s.Money,
			PendingBuyIn: s.PendingBuyIn,
			MissedBlind:  s.MissedBlind,
			Leaving:      s.Leaving,
			TimeBankMs:   s.TimeBank.Milliseconds(),
		})
	}
	return v
}

type potView struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

type potResultView struct {
	Amount  int64         `json:"amount"`
	Rake    int64         `json:"rake"`
	Winners []int         `json:"winners"`
	Shares  map[int]int64 `json:"shares"`
}

type rankView struct {
	Name string   `json:"name"`
	Best []string `json:"best"`
}

type resultView struct {
	HandID    string           `json:"hand_id"`
	Round     uint64           `json:"round"`
	Board     []string         `json:"board"`
	Pots      []potResultView  `json:"pots"`
	Rake      int64            `json:"rake"`
	Tips      int64            `json:"tips"`
	Reveal    []int            `json:"reveal"`
	Ranks     map[int]rankView `json:"ranks"`
	Start     map[int]int64    `json:"start"`
	End       map[int]int64    `json:"end"`
	Conserved bool             `json:"conserved"`
}

func newResultView(r *table.HandResult) resultView {
	v := resultView{
		HandID:    r.HandID,
		Round:     r.Round,
		Board:     cardStrings(r.Board),
		Rake:      r.Rake,
		Tips:      r.Tips,
		Reveal:    nonNil(r.Reveal),
		Ranks:     make(map[int]rankView, len(r.Ranks)),
		Start:     r.Start,
		End:       r.End,
		Conserved: r.Conserved,
	}
	for _, p := range r.Pots {
		v.Pots = append(v.Pots, potResultView{Amount: p.Amount, Rake: p.Rake, Winners: nonNil(p.Winners), Shares: p.Shares})
	}
	for seat, rank := range r.Ranks {
		v.Ranks[seat] = newRankView(rank)
	}
	return v
}

func newRankView(r holdem.HandRank) rankView {
	return rankView{Name: r.Name, Best: cardStrings(r.Best)}
}

type levelView struct {
	Kind       string    `json:"kind"`
	SmallBlind int64     `json:"small_blind"`
	BigBlind   int64     `json:"big_blind"`
	Ante       int64     `json:"ante"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Remaining  string    `json:"remaining"`
	Finished   bool      `json:"finished"`
}

type alertView struct {
	ID      string    `json:"id"`
	TableID string    `json:"table_id"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

func newAlertView(a table.Alert) alertView {
	return alertView{ID: a.ID, TableID: a.TableID, Code: string(a.Code), Message: a.Message, At: a.At}
}

func cardStrings(cards []card.Card) []string {
	out := make([]string, 0, len(cards))
	for _, c := range cards {
		out = append(out, c.String())
	}
	return out
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
