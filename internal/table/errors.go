package table

import "errors"

var (
	ErrTableClosed        = errors.New("table closed")
	ErrHandInProgress     = errors.New("hand in progress")
	ErrNoHand             = errors.New("no hand in progress")
	ErrAwaitingSettlement = errors.New("previous hand not reconciled")
	ErrFrozen             = errors.New("table frozen after ledger failure")
	ErrPaused             = errors.New("table paused")
	ErrOnBreak            = errors.New("tournament on break")
	ErrNotEnoughPlayers   = errors.New("not enough players")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrSeatNotPlaying     = errors.New("seat not playing")
	ErrSeatTaken          = errors.New("seat taken")
	ErrInvalidSeat        = errors.New("invalid seat")
	ErrAlreadySeated      = errors.New("user already seated")
	ErrInvalidBuyIn       = errors.New("invalid buy-in")
	ErrSidebetClosed      = errors.New("side bet window closed")
	ErrUnknownSidebet     = errors.New("unknown side bet kind")
	ErrInvalidAmount      = errors.New("invalid amount")
)
