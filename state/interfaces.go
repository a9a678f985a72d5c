// state/interfaces.go
package state

// Player is the minimal view of an acting client a state needs.
type Player interface {
	GetID() string
	GetUserID() string
}

// RoomContext is what a Room must expose to be driven by the state
// machine. It breaks the import cycle between room and state.
//
// Every method is invoked from within a room operation that already holds
// the room's action lock, so implementations must not take it again.
type RoomContext interface {
	GetID() string
	GetGameType() string
	Broadcast(msgID uint16, data []byte) error

	// BeginRound deals a fresh game if none exists; it is an idempotent
	// no-op when a game state is already present.
	BeginRound()
	// TakeCard and Pass apply a hit/stand for the given user; illegal
	// attempts are silently ignored.
	TakeCard(userID string)
	Pass(userID string)
	// StartNewGame replaces a finished round with a fresh deal
	// (room creator only).
	StartNewGame(userID string)
}
