package card

import (
	"fmt"
	"strings"
)

// Card is a single playing card.
//
// Encoding:
//   - high nibble: suit (0 Spade, 1 Heart, 2 Club, 3 Diamond)
//   - low nibble: rank (1 A, 2..9, 10 T, 11 J, 12 Q, 13 K)
type Card byte

const (
	CardInvalid Card = 0
	// CardRear is a face-down card.
	CardRear Card = 0xFF
)

const rankChars = "A23456789TJQK"

// String renders the card as rank+suit, e.g. "As", "Td".
func (c Card) String() string {
	if !c.Valid() {
		if c == CardRear {
			return "??"
		}
		return "Invalid"
	}
	return string([]byte{rankChars[c.Rank()-1], c.Suit().Char()})
}

// Rank returns 1-13 (A=1, K=13), or 0 for a non-card.
func (c Card) Rank() byte {
	if c == CardInvalid || c == CardRear {
		return 0
	}
	return byte(c & 0x0F)
}

func (c Card) Suit() Suit {
	return Suit(c >> 4)
}

func (c Card) IsAce() bool {
	return c.Rank() == 1
}

// Valid reports whether c encodes one of the 52 cards.
func (c Card) Valid() bool {
	r := c & 0x0F
	return c != CardRear && c>>4 <= 3 && r >= 1 && r <= 13
}

// HandRealVal returns the comparison value: A counts as 14.
func (c Card) HandRealVal() int {
	r := int(c & 0x0F)
	if r == 1 {
		return 14
	}
	return r
}

// Parse converts strings like "As", "Td" or "10h" into a Card.
func Parse(s string) (Card, error) {
	if len(s) < 2 {
		return CardInvalid, fmt.Errorf("invalid card string: %q", s)
	}
	var suit Card
	switch s[len(s)-1] {
	case 's', 'S':
		suit = 0x00
	case 'h', 'H':
		suit = 0x10
	case 'c', 'C':
		suit = 0x20
	case 'd', 'D':
		suit = 0x30
	default:
		return CardInvalid, fmt.Errorf("invalid suit in %q", s)
	}
	rank := strings.ToUpper(s[:len(s)-1])
	if rank == "10" {
		rank = "T"
	}
	if len(rank) != 1 {
		return CardInvalid, fmt.Errorf("invalid rank in %q", s)
	}
	idx := strings.IndexByte(rankChars, rank[0])
	if idx < 0 {
		return CardInvalid, fmt.Errorf("invalid rank in %q", s)
	}
	return suit + Card(idx+1), nil
}

// MustParse is Parse for fixed test and fixture data.
func MustParse(s string) Card {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ParseList parses a space separated card list such as "As Kd 7c".
func ParseList(s string) ([]Card, error) {
	fields := strings.Fields(s)
	out := make([]Card, 0, len(fields))
	for _, f := range fields {
		c, err := Parse(f)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}
