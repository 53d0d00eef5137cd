package table

import "time"

// SeatState is the cross-hand lifecycle of a seat.
type SeatState int

const (
	SeatEmpty SeatState = iota
	// SeatJoining waits for the ledger to confirm the buy-in.
	SeatJoining
	SeatWaiting
	SeatPlaying
	SeatSittingOut
	SeatEliminated
)

func (s SeatState) String() string {
	switch s {
	case SeatEmpty:
		return "empty"
	case SeatJoining:
		return "joining"
	case SeatWaiting:
		return "waiting"
	case SeatPlaying:
		return "playing"
	case SeatSittingOut:
		return "sitting_out"
	case SeatEliminated:
		return "eliminated"
	default:
		return "unknown"
	}
}

// SeatAccount is the persistent side of a seat. It survives across hands
// and is joined to the engine's per-hand HandContext by Index only.
type SeatAccount struct {
	Index  int
	UserID string
	// Money is the chip count at the table between hands.
	Money int64
	// PendingBuyIn is confirmed by the ledger and added before the next hand.
	PendingBuyIn int64
	State        SeatState
	MissedBlind  bool
	Leaving      bool
	TimeBank     time.Duration

	sitOutPending bool
	// handshakeOut marks a seat benched for the current hand only.
	handshakeOut  bool
}

func (a *SeatAccount) occupied() bool {
	return a.State != SeatEmpty
}

// dealable reports whether the seat can be dealt into the next hand.
func (a *SeatAccount) dealable() bool {
	return (a.State == SeatWaiting || a.State == SeatPlaying) && a.Money > 0 && !a.Leaving
}

func (a *SeatAccount) clear() {
	*a = SeatAccount{Index: a.Index}
}
