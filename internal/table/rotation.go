package table

import (
	"fmt"

	"holdem-arena/holdem"
)

// Assignment is who plays the next hand and who posts what.
type Assignment struct {
	Seats  []int
	Dealer int
	SB     int
	BB     int
	Level  BlindLevel
	// Dead is the missed-blind surcharge per seat, posted as dead money.
	Dead map[int]int64
}

// RotationPolicy moves the button and assigns blinds. accounts holds every
// seat of the table in index order; prevDealer is NoSeat before the first
// hand.
type RotationPolicy interface {
	Assign(prevDealer int, accounts []SeatAccount, level BlindLevel, chargeMissed bool) (Assignment, error)
}

// DefaultRotation moves the button one dealable seat clockwise. Heads-up
// the button posts the small blind.
type DefaultRotation struct{}

func (DefaultRotation) Assign(prevDealer int, accounts []SeatAccount, level BlindLevel, chargeMissed bool) (Assignment, error) {
	a := Assignment{Dealer: holdem.NoSeat, SB: holdem.NoSeat, BB: holdem.NoSeat, Level: level, Dead: map[int]int64{}}
	for i := range accounts {
		if accounts[i].dealable() {
			a.Seats = append(a.Seats, accounts[i].Index)
		}
	}
	if len(a.Seats) < 2 {
		return a, fmt.Errorf("%w: %d dealable", ErrNotEnoughPlayers, len(a.Seats))
	}

	a.Dealer = nextIn(a.Seats, prevDealer)
	if len(a.Seats) == 2 {
		a.SB = a.Dealer
	} else {
		a.SB = nextIn(a.Seats, a.Dealer)
	}
	a.BB = nextIn(a.Seats, a.SB)

	if chargeMissed {
		for _, seat := range a.Seats {
			if accounts[seat].MissedBlind && seat != a.BB && seat != a.SB {
				a.Dead[seat] = level.Big
			}
		}
	}
	return a, nil
}

// nextIn returns the first seat of the sorted list strictly after from,
// wrapping around.
func nextIn(seats []int, from int) int {
	for _, s := range seats {
		if s > from {
			return s
		}
	}
	return seats[0]
}
