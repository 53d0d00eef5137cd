package holdem

import "errors"

var (
	ErrHandEnded         = errors.New("hand already ended")
	ErrOutOfTurn         = errors.New("action out of turn")
	ErrIllegalBet        = errors.New("illegal bet")
	ErrNotEnoughPlayers  = errors.New("not enough players")
	ErrSeatNotInHand     = errors.New("seat not in hand")
	ErrInsufficientCards = errors.New("deck too short")
)

type InvalidStateError string

func (e InvalidStateError) Error() string { return "invalid state: " + string(e) }

func ErrInvalidState(msg string) error { return InvalidStateError(msg) }
