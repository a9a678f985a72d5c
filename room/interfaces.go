// room/interfaces.go
package room

import "github.com/drinkcal/roomserver/models"

type Broadcaster interface {
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
}

// Recorder persists the durable record of a concluded round.
type Recorder interface {
	SaveFinishedGame(g *models.FinishedGame) error
}

type Metrics interface {
	SetActiveRooms(count int)
	IncGamesFinished()
}
