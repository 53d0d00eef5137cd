package table

import (
	"math"

	"holdem-arena/internal/ledger"
)

// Kind is the closed set of table variants.
type Kind int

const (
	KindCash Kind = iota
	KindTournament
)

func (k Kind) String() string {
	if k == KindTournament {
		return "tournament"
	}
	return "cash"
}

type BlindLevel struct {
	Small int64
	Big   int64
	Ante  int64
}

// BlindSource yields the blinds for the next hand. ok is false while no
// hand may be dealt (a tournament break).
type BlindSource interface {
	Current() (level BlindLevel, ok bool)
}

type FixedBlinds BlindLevel

func (f FixedBlinds) Current() (BlindLevel, bool) { return BlindLevel(f), true }

type BlindFunc func() (BlindLevel, bool)

func (f BlindFunc) Current() (BlindLevel, bool) { return f() }

// EndOfHandPolicy decides what happens to a seat that busted.
type EndOfHandPolicy interface {
	Busted(acct *SeatAccount) SeatState
	// ChargeMissedBlinds reports whether returning seats post a dead blind.
	ChargeMissedBlinds() bool
}

type cashEndOfHand struct{}

func (cashEndOfHand) Busted(*SeatAccount) SeatState { return SeatSittingOut }
func (cashEndOfHand) ChargeMissedBlinds() bool      { return true }

type tournamentEndOfHand struct{}

func (tournamentEndOfHand) Busted(*SeatAccount) SeatState { return SeatEliminated }
func (tournamentEndOfHand) ChargeMissedBlinds() bool      { return false }

// InsurancePricing turns a loss probability into a premium.
type InsurancePricing interface {
	Quote(lossProbability float64, pot int64) (premium int64, ok bool)
}

// MarginPricing offers cover while the loss probability is in (0, MaxLoss)
// and charges the fair price times Margin, rounded up.
type MarginPricing struct {
	MaxLoss float64
	Margin  float64
}

func (p MarginPricing) Quote(lossProbability float64, pot int64) (int64, bool) {
	if lossProbability <= 0 || lossProbability >= p.MaxLoss || pot <= 0 {
		return 0, false
	}
	return int64(math.Ceil(lossProbability * float64(pot) * p.Margin)), true
}

type noInsurance struct{}

func (noInsurance) Quote(float64, int64) (int64, bool) { return 0, false }

// RakePolicy takes BasisPoints of each pot up to Cap per hand.
type RakePolicy struct {
	BasisPoints int64
	Cap         int64
	// SkipUncontested leaves pots with a single eligible seat unraked.
	SkipUncontested bool
}

func (r RakePolicy) enabled() bool {
	return r.BasisPoints > 0 && r.Cap > 0
}

// Variant bundles the strategies that differ between table kinds. It is
// chosen once when the table is built.
type Variant struct {
	Kind      Kind
	Rotation  RotationPolicy
	Blinds    BlindSource
	EndOfHand EndOfHandPolicy
	Insurance InsurancePricing
	Rake      RakePolicy
}

// Cash returns a fixed-blind variant with insurance and rake.
func Cash(level BlindLevel, rake RakePolicy) Variant {
	return Variant{
		Kind:      KindCash,
		Rotation:  DefaultRotation{},
		Blinds:    FixedBlinds(level),
		EndOfHand: cashEndOfHand{},
		Insurance: MarginPricing{MaxLoss: 0.33, Margin: 1.05},
		Rake:      rake,
	}
}

// Tournament returns a variant driven by a level schedule, without
// insurance or rake.
func Tournament(blinds BlindSource) Variant {
	return Variant{
		Kind:      KindTournament,
		Rotation:  DefaultRotation{},
		Blinds:    blinds,
		EndOfHand: tournamentEndOfHand{},
		Insurance: noInsurance{},
	}
}

func (v *Variant) fill() {
	if v.Rotation == nil {
		v.Rotation = DefaultRotation{}
	}
	if v.Blinds == nil {
		v.Blinds = FixedBlinds{Small: 1, Big: 2}
	}
	if v.EndOfHand == nil {
		if v.Kind == KindTournament {
			v.EndOfHand = tournamentEndOfHand{}
		} else {
			v.EndOfHand = cashEndOfHand{}
		}
	}
	if v.Insurance == nil {
		v.Insurance = noInsurance{}
	}
	if v.Kind == KindTournament {
		v.Rake = RakePolicy{}
	}
}

// reconcileAction maps a ledger verdict to what the table does next.
func reconcileAction(res ledger.RoundResult) (teardown, pause bool) {
	return res.Teardown(), res.Status == ledger.StatusPause
}
