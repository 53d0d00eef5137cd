package shuffle

import (
	"encoding/binary"

	"golang.org/x/crypto/chacha20"

	"holdem-arena/card"
)

// Deck returns the canonical deck permuted by Fisher-Yates, with every swap
// index drawn from a ChaCha20 keystream keyed by seed. The same seed always
// yields the same deck.
func Deck(seed [32]byte) card.CardList {
	deck := card.NewDeck()
	ks := newKeystream(seed)
	for i := len(deck) - 1; i > 0; i-- {
		j := ks.intn(uint32(i + 1))
		deck[i], deck[j] = deck[j], deck[i]
	}
	return deck
}

type keystream struct {
	c   *chacha20.Cipher
	buf [64]byte
	off int
}

func newKeystream(seed [32]byte) *keystream {
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(seed[:], nonce)
	if err != nil {
		// key and nonce sizes are fixed above
		panic(err)
	}
	ks := &keystream{c: c}
	ks.refill()
	return ks
}

func (k *keystream) refill() {
	for i := range k.buf {
		k.buf[i] = 0
	}
	k.c.XORKeyStream(k.buf[:], k.buf[:])
	k.off = 0
}

func (k *keystream) uint32() uint32 {
	if k.off+4 > len(k.buf) {
		k.refill()
	}
	v := binary.LittleEndian.Uint32(k.buf[k.off:])
	k.off += 4
	return v
}

// intn returns a uniform value in [0, n) by rejection sampling.
func (k *keystream) intn(n uint32) uint32 {
	limit := ^uint32(0) - ^uint32(0)%n
	for {
		v := k.uint32()
		if v < limit {
			return v % n
		}
	}
}
