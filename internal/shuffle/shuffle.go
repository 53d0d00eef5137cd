// Package shuffle implements the per-hand commit-reveal handshake and the
// deterministic deck derived from it.
//
// Every participant commits to SHA-256(secret) before any secret is shown.
// Once all secrets are revealed the seed is the hash of every verified
// (hash, secret) pair in seat order, table last, so no single party can
// steer the deck.
package shuffle

import (
	"bytes"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"
)

const (
	// SecretSize is the length of a generated secret.
	SecretSize = 32
	// TableSeat identifies the table's own contribution in a transcript.
	TableSeat = -1
)

var (
	ErrUnknownSeat  = errors.New("shuffle: seat is not part of this round")
	ErrDuplicate    = errors.New("shuffle: seat already submitted")
	ErrBadHash      = errors.New("shuffle: commitment must be a sha256 digest")
	ErrWrongPhase   = errors.New("shuffle: submission outside its phase")
	ErrEmptySecret  = errors.New("shuffle: empty secret")
	ErrNoCommitment = errors.New("shuffle: seat has no commitment")
)

type phase int

const (
	phaseCommit phase = iota
	phaseReveal
	phaseDone
)

// NewSecret returns SecretSize random bytes.
func NewSecret() ([]byte, error) {
	b := make([]byte, SecretSize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("shuffle: read secret: %w", err)
	}
	return b, nil
}

// Commit returns the commitment for secret.
func Commit(secret []byte) []byte {
	sum := sha256.Sum256(secret)
	return sum[:]
}

// Entry is one participant's commitment and revealed secret.
type Entry struct {
	Seat   int
	Hash   []byte
	Secret []byte
}

// Valid reports whether the secret opens the commitment.
func (e Entry) Valid() bool {
	return len(e.Secret) > 0 && bytes.Equal(Commit(e.Secret), e.Hash)
}

// Transcript is the post-hand record broadcast for re-verification.
// Entries are in seat order with the table last.
type Transcript struct {
	Entries []Entry
	// TimedOut lists seats that missed the commit or reveal deadline.
	TimedOut []int
	// Flagged lists seats whose secret did not match their commitment.
	Flagged []int
}

// Verify returns exactly the seats whose revealed secret does not hash to
// their commitment.
func Verify(t Transcript) []int {
	var bad []int
	for _, e := range t.Entries {
		if !e.Valid() {
			bad = append(bad, e.Seat)
		}
	}
	return bad
}

// Seed derives the shuffle seed from the verified entries of t.
func Seed(t Transcript) [32]byte {
	h := sha256.New()
	for _, e := range t.Entries {
		if !e.Valid() {
			continue
		}
		h.Write(e.Hash)
		h.Write(e.Secret)
	}
	var seed [32]byte
	copy(seed[:], h.Sum(nil))
	return seed
}

// Round tracks one handshake. It is not safe for concurrent use; the table
// actor owns it for the duration of the handshake.
type Round struct {
	phase    phase
	seats    []int
	hashes   map[int][]byte
	secrets  map[int][]byte
	table    []byte
	timedOut []int
	flagged  []int
}

// NewRound starts a handshake among seats and draws the table's secret.
func NewRound(seats []int) (*Round, error) {
	secret, err := NewSecret()
	if err != nil {
		return nil, err
	}
	s := append([]int(nil), seats...)
	sort.Ints(s)
	return &Round{
		seats:   s,
		hashes:  make(map[int][]byte, len(s)),
		secrets: make(map[int][]byte, len(s)),
		table:   secret,
	}, nil
}

// Participants returns the seats still in the round.
func (r *Round) Participants() []int {
	return append([]int(nil), r.seats...)
}

func (r *Round) member(seat int) bool {
	for _, s := range r.seats {
		if s == seat {
			return true
		}
	}
	return false
}

// SubmitHash records a seat's commitment.
func (r *Round) SubmitHash(seat int, hash []byte) error {
	if r.phase != phaseCommit {
		return ErrWrongPhase
	}
	if !r.member(seat) {
		return ErrUnknownSeat
	}
	if len(hash) != sha256.Size {
		return ErrBadHash
	}
	if _, ok := r.hashes[seat]; ok {
		return ErrDuplicate
	}
	r.hashes[seat] = append([]byte(nil), hash...)
	return nil
}

// CloseCommit ends the commit phase. Seats without a commitment are dropped
// and returned. The returned map is the full hash set to broadcast, keyed by
// seat with the table under TableSeat.
func (r *Round) CloseCommit() (dropped []int, hashes map[int][]byte) {
	if r.phase == phaseCommit {
		r.phase = phaseReveal
		dropped = r.drop(func(seat int) bool {
			_, ok := r.hashes[seat]
			return !ok
		})
		r.timedOut = append(r.timedOut, dropped...)
	}
	hashes = make(map[int][]byte, len(r.seats)+1)
	for _, seat := range r.seats {
		hashes[seat] = r.hashes[seat]
	}
	hashes[TableSeat] = Commit(r.table)
	return dropped, hashes
}

// SubmitSecret records a seat's reveal. Verification happens at CloseReveal.
func (r *Round) SubmitSecret(seat int, secret []byte) error {
	if r.phase != phaseReveal {
		return ErrWrongPhase
	}
	if !r.member(seat) {
		return ErrUnknownSeat
	}
	if _, ok := r.hashes[seat]; !ok {
		return ErrNoCommitment
	}
	if len(secret) == 0 {
		return ErrEmptySecret
	}
	if _, ok := r.secrets[seat]; ok {
		return ErrDuplicate
	}
	r.secrets[seat] = append([]byte(nil), secret...)
	return nil
}

// CloseReveal ends the reveal phase. Seats that did not reveal are dropped
// as timed out; seats whose secret does not open their commitment are
// dropped as flagged. Neither affects the remaining seats.
func (r *Round) CloseReveal() (timedOut, flagged []int) {
	if r.phase != phaseReveal {
		return nil, nil
	}
	r.phase = phaseDone
	timedOut = r.drop(func(seat int) bool {
		_, ok := r.secrets[seat]
		return !ok
	})
	flagged = r.drop(func(seat int) bool {
		return !bytes.Equal(Commit(r.secrets[seat]), r.hashes[seat])
	})
	r.timedOut = append(r.timedOut, timedOut...)
	r.flagged = append(r.flagged, flagged...)
	return timedOut, flagged
}

// Transcript returns the record of the round. Flagged seats stay in
// Entries so that anyone re-running Verify reaches the same verdict.
func (r *Round) Transcript() Transcript {
	t := Transcript{
		TimedOut: append([]int(nil), r.timedOut...),
		Flagged:  append([]int(nil), r.flagged...),
	}
	revealed := make([]int, 0, len(r.secrets))
	for seat := range r.secrets {
		revealed = append(revealed, seat)
	}
	sort.Ints(revealed)
	for _, seat := range revealed {
		t.Entries = append(t.Entries, Entry{Seat: seat, Hash: r.hashes[seat], Secret: r.secrets[seat]})
	}
	t.Entries = append(t.Entries, Entry{Seat: TableSeat, Hash: Commit(r.table), Secret: r.table})
	return t
}

func (r *Round) drop(match func(seat int) bool) []int {
	var out []int
	kept := r.seats[:0]
	for _, seat := range r.seats {
		if match(seat) {
			out = append(out, seat)
			continue
		}
		kept = append(kept, seat)
	}
	r.seats = kept
	return out
}
