package holdem

import "fmt"

type Config struct {
	MaxSeats int
	Limit    Limit
	// HoleCards is 2 for Hold'em and 4 for Omaha.
	HoleCards int
	// BurnCards burns one card before the flop is dealt.
	BurnCards bool
}

// Omaha reports whether hands must use exactly two hole cards.
func (c Config) Omaha() bool {
	return c.HoleCards == 4
}

func (c Config) validate() error {
	if c.MaxSeats < 2 || c.MaxSeats > 10 {
		return fmt.Errorf("MaxSeats must be in [2,10], got %d", c.MaxSeats)
	}
	if c.HoleCards != 2 && c.HoleCards != 4 {
		return fmt.Errorf("HoleCards must be 2 or 4, got %d", c.HoleCards)
	}
	if c.Limit != NoLimit && c.Limit != PotLimit {
		return fmt.Errorf("unknown limit %d", c.Limit)
	}
	return nil
}
