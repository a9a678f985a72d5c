// game/state.go
package game

import (
	"math/rand"
)

// Outcome classifies the result of a hit or stand attempt. Precondition
// failures are not errors: a stale client may legitimately press a button
// out of turn, and the action is silently ignored.
type Outcome int

const (
	Applied Outcome = iota
	NotYourTurn
	AlreadyPassed
	RoundOver
	DeckEmpty
	NotPlaying
)

// Ignored reports whether the attempt was rejected without effect.
func (o Outcome) Ignored() bool {
	return o != Applied
}

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NotYourTurn:
		return "not your turn"
	case AlreadyPassed:
		return "already passed"
	case RoundOver:
		return "round over"
	case DeckEmpty:
		return "deck empty"
	case NotPlaying:
		return "not playing"
	}
	return "unknown"
}

// PlayerHand is one player's seat for the duration of a round. Cards is
// append-only while the round runs; TurnOrder is fixed at deal time.
type PlayerHand struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Cards       []Card `json:"cards"`
	Passed      bool   `json:"passed"`
	TurnOrder   int    `json:"turnOrder"`
}

// State is the full mutable state of one round. The zero GameID means the
// round has not been recorded yet; it is filled in at resolution time.
type State struct {
	Deck               []Card       `json:"deck"`
	Players            []PlayerHand `json:"players"`
	CurrentPlayerIndex int          `json:"currentPlayerIndex"`
	RoundEnded         bool         `json:"roundEnded"`
	GameID             string       `json:"gameId,omitempty"`
}

// Seat names one participant to be dealt into a new round.
type Seat struct {
	UserID      string
	DisplayName string
}

// Deal builds a shuffled deck and gives every seat two cards, in seat
// order. TurnOrder equals the seat index and the first seat acts first.
func Deal(seats []Seat, rng *rand.Rand) *State {
	deck := NewDeck(rng)

	players := make([]PlayerHand, len(seats))
	for i, seat := range seats {
		players[i] = PlayerHand{
			UserID:      seat.UserID,
			DisplayName: seat.DisplayName,
			Cards:       []Card{deck[i*2], deck[i*2+1]},
			TurnOrder:   i,
		}
	}

	return &State{
		Deck:               deck[len(seats)*2:],
		Players:            players,
		CurrentPlayerIndex: 0,
	}
}

// CurrentPlayer returns the hand whose turn it is, or nil for an empty
// player list.
func (s *State) CurrentPlayer() *PlayerHand {
	if len(s.Players) == 0 {
		return nil
	}
	return &s.Players[s.CurrentPlayerIndex]
}

// checkTurn validates the shared hit/stand preconditions for userID.
func (s *State) checkTurn(userID string) Outcome {
	if s.RoundEnded {
		return RoundOver
	}
	current := s.CurrentPlayer()
	if current == nil || current.UserID != userID {
		return NotYourTurn
	}
	if current.Passed {
		return AlreadyPassed
	}
	return Applied
}

// Hit draws the front card of the deck into the current player's hand.
// A bust advances the turn; otherwise the same player keeps acting.
// endedNow is true only on the call that flips RoundEnded, so round
// resolution side effects fire exactly once.
func (s *State) Hit(userID string) (card Card, outcome Outcome, endedNow bool) {
	if outcome = s.checkTurn(userID); outcome != Applied {
		return Card{}, outcome, false
	}
	if len(s.Deck) == 0 {
		// Undealt cards ran out. The hit is rejected; the player can
		// still stand, so the round always terminates.
		return Card{}, DeckEmpty, false
	}

	card = s.Deck[0]
	s.Deck = s.Deck[1:]
	current := s.CurrentPlayer()
	current.Cards = append(current.Cards, card)

	if IsBusted(current.Cards) {
		s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
		if s.allDone() {
			s.RoundEnded = true
			endedNow = true
		}
	}
	return card, Applied, endedNow
}

// Stand marks the current player's hand as passed and advances the turn
// unless the round ends with this action.
func (s *State) Stand(userID string) (outcome Outcome, endedNow bool) {
	if outcome = s.checkTurn(userID); outcome != Applied {
		return outcome, false
	}

	s.CurrentPlayer().Passed = true

	if s.allDone() {
		s.RoundEnded = true
		return Applied, true
	}
	s.CurrentPlayerIndex = (s.CurrentPlayerIndex + 1) % len(s.Players)
	return Applied, false
}

// allDone reports whether every hand is passed or busted.
func (s *State) allDone() bool {
	for _, p := range s.Players {
		if !p.Passed && !IsBusted(p.Cards) {
			return false
		}
	}
	return true
}

// Winner returns the non-busted hand with the highest value, ties going to
// the earliest turn order. It returns nil when every hand busted.
func (s *State) Winner() *PlayerHand {
	var best *PlayerHand
	bestValue := 0
	for i := range s.Players {
		p := &s.Players[i]
		if IsBusted(p.Cards) {
			continue
		}
		if value := HandValue(p.Cards); best == nil || value > bestValue {
			best = p
			bestValue = value
		}
	}
	return best
}
