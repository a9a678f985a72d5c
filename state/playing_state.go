package state

import (
	"encoding/json"
	"fmt"

	"github.com/drinkcal/roomserver/logger"
)

// Action is a player's in-game intent, carried as the payload of a
// player-action packet.
type Action struct {
	Type string `json:"type"`
}

const (
	ActionHit     = "hit"
	ActionStand   = "stand"
	ActionNewGame = "new_game"
)

// PlayingState is the in-game state. Entering it deals the first round if
// the room does not already hold a game, so re-starting a stopped room
// does not wipe a concluded round's cards.
type PlayingState struct {
	RoomStateBase
}

func NewPlayingState(room RoomContext) *PlayingState {
	return &PlayingState{
		RoomStateBase: RoomStateBase{
			ID:   StatePlaying,
			Room: room,
		},
	}
}

func (s *PlayingState) OnEnter() {
	s.Room.BeginRound()
}

// HandleAction routes hit/stand/new-game intents into the room. Unknown
// action types are an error; illegal-but-well-formed attempts (acting out
// of turn, acting after the round ended) are absorbed by the room as
// silent no-ops.
func (s *PlayingState) HandleAction(player Player, actionData []byte) error {
	var action Action
	if err := json.Unmarshal(actionData, &action); err != nil {
		return fmt.Errorf("failed to unmarshal action data: %w", err)
	}

	switch action.Type {
	case ActionHit:
		s.Room.TakeCard(player.GetUserID())
	case ActionStand:
		s.Room.Pass(player.GetUserID())
	case ActionNewGame:
		s.Room.StartNewGame(player.GetUserID())
	default:
		logger.Log.Warnf("Unknown game action %q in room %s", action.Type, s.Room.GetID())
		return fmt.Errorf("unknown action type %q", action.Type)
	}
	return nil
}
