// internal/game/pile.go
package game

import (
	"math/rand"
)

// Pile is a draw pile backed by a source pool. Deck and Discard point into
// the room document; the pool returned by source is never modified.
type Pile[T any] struct {
	source  func() []T
	deck    *[]T
	discard *[]T
}

// NewPile wires a pile over the given working slices.
func NewPile[T any](source func() []T, deck, discard *[]T) *Pile[T] {
	return &Pile[T]{source: source, deck: deck, discard: discard}
}

// Take removes and returns the head of the deck. An empty deck is first
// refilled with a fresh permutation of the source pool and the discard is
// cleared; reshuffled reports when that happened.
func (p *Pile[T]) Take(rng *rand.Rand) (item T, reshuffled bool, err error) {
	if len(*p.deck) == 0 {
		if !p.refill(rng) {
			return item, false, ErrEmptyPool
		}
		reshuffled = true
	}
	item = (*p.deck)[0]
	*p.deck = (*p.deck)[1:]
	return item, reshuffled, nil
}

// Draw takes the head of the deck and records it on the discard.
func (p *Pile[T]) Draw(rng *rand.Rand) (T, bool, error) {
	item, reshuffled, err := p.Take(rng)
	if err != nil {
		return item, false, err
	}
	*p.discard = append(*p.discard, item)
	return item, reshuffled, nil
}

// Restock refills an exhausted deck without drawing from it. It reports
// whether a reshuffle took place.
func (p *Pile[T]) Restock(rng *rand.Rand) bool {
	if len(*p.deck) > 0 {
		return false
	}
	return p.refill(rng)
}

// Reset replaces the deck with a full permutation of the source pool and
// clears the discard, regardless of what was left.
func (p *Pile[T]) Reset(rng *rand.Rand) {
	*p.deck = shuffled(rng, p.source())
	*p.discard = make([]T, 0)
}

func (p *Pile[T]) refill(rng *rand.Rand) bool {
	src := p.source()
	if len(src) == 0 {
		return false
	}
	*p.deck = shuffled(rng, src)
	*p.discard = make([]T, 0)
	return true
}

// shuffled returns a uniformly random permutation of a copy of in.
func shuffled[T any](rng *rand.Rand, in []T) []T {
	out := make([]T, len(in))
	copy(out, in)
	rng.Shuffle(len(out), func(i, j int) {
		out[i], out[j] = out[j], out[i]
	})
	return out
}
