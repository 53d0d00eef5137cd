package card

type CardList []Card

// NewDeck returns the 52 cards in canonical order, spades first.
func NewDeck() CardList {
	deck := make(CardList, 0, 52)
	for suit := Card(0); suit <= 3; suit++ {
		for rank := Card(1); rank <= 13; rank++ {
			deck = append(deck, suit<<4|rank)
		}
	}
	return deck
}

func (ds CardList) Count() int {
	return len(ds)
}

func (ds CardList) Clone() CardList {
	out := make(CardList, len(ds))
	copy(out, ds)
	return out
}

func (ds CardList) Contains(c Card) bool {
	for _, x := range ds {
		if x == c {
			return true
		}
	}
	return false
}

// Without returns the cards of ds not present in any of the excluded lists.
func (ds CardList) Without(excluded ...[]Card) CardList {
	skip := make(map[Card]struct{})
	for _, list := range excluded {
		for _, c := range list {
			skip[c] = struct{}{}
		}
	}
	out := make(CardList, 0, len(ds))
	for _, c := range ds {
		if _, ok := skip[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

func (ds CardList) Bytes() []byte {
	out := make([]byte, 0, len(ds))
	for _, c := range ds {
		out = append(out, byte(c))
	}
	return out
}

// PopCards takes size cards from the front of the list.
func (ds *CardList) PopCards(size int) ([]Card, bool) {
	if size > ds.Count() {
		return nil, false
	}
	cards := make([]Card, size)
	copy(cards, (*ds)[:size])
	*ds = (*ds)[size:]
	return cards, true
}

func (ds *CardList) PopCard() Card {
	cards, ok := ds.PopCards(1)
	if !ok {
		return CardInvalid
	}
	return cards[0]
}
