// game/cards.go
package game

import (
	"math/rand"
)

var (
	suits = []string{"♠", "♥", "♦", "♣"}
	ranks = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}
)

// Card is one card of a standard 52-card deck. ID is suit+rank and is
// unique within a deck.
type Card struct {
	Suit string `json:"suit"`
	Rank string `json:"rank"`
	ID   string `json:"id"`
}

// NewDeck returns a freshly shuffled 52-card deck, front = next draw.
// A nil rng falls back to the global math/rand source; tests pass an
// explicit source for deterministic deals.
func NewDeck(rng *rand.Rand) []Card {
	deck := make([]Card, 0, len(suits)*len(ranks))
	for _, suit := range suits {
		for _, rank := range ranks {
			deck = append(deck, Card{Suit: suit, Rank: rank, ID: suit + "-" + rank})
		}
	}
	shuffle(deck, rng)
	return deck
}

// shuffle is an in-place Fisher-Yates shuffle.
func shuffle(deck []Card, rng *rand.Rand) {
	for i := len(deck) - 1; i > 0; i-- {
		var j int
		if rng != nil {
			j = rng.Intn(i + 1)
		} else {
			j = rand.Intn(i + 1)
		}
		deck[i], deck[j] = deck[j], deck[i]
	}
}

// CardValue returns the counting value of a rank: aces count as 11 until
// the hand total demotes them, face cards as 10.
func CardValue(rank string) int {
	switch rank {
	case "A":
		return 11
	case "J", "Q", "K":
		return 10
	case "10":
		return 10
	default:
		return int(rank[0] - '0')
	}
}

// HandValue scores a hand for twenty-one. Aces start at 11 and are demoted
// to 1 one at a time while the total exceeds 21.
func HandValue(cards []Card) int {
	total := 0
	aces := 0
	for _, card := range cards {
		if card.Rank == "A" {
			aces++
		}
		total += CardValue(card.Rank)
	}
	for total > 21 && aces > 0 {
		total -= 10
		aces--
	}
	return total
}

// IsBusted reports whether the hand exceeds 21.
func IsBusted(cards []Card) bool {
	return HandValue(cards) > 21
}

// IsBlackjack reports whether the hand is exactly two cards worth 21.
func IsBlackjack(cards []Card) bool {
	return len(cards) == 2 && HandValue(cards) == 21
}
