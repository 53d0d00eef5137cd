package card

type Suit byte

const (
	Spade Suit = iota
	Heart
	Club
	Diamond
)

// Char is the lowercase suit letter used in card strings.
func (s Suit) Char() byte {
	switch s {
	case Spade:
		return 's'
	case Heart:
		return 'h'
	case Club:
		return 'c'
	case Diamond:
		return 'd'
	}
	return '?'
}

func (s Suit) String() string {
	return string(s.Char())
}
