// persistence/interface.go
package persistence

import (
	"fmt"

	"github.com/drinkcal/roomserver/models"
)

// Database is the durable store for concluded rounds. Both drivers write
// the same finished_games table; which one runs is a config choice.
type Database interface {
	SaveFinishedGame(game *models.FinishedGame) error
	ListFinishedGamesByRoom(roomID string) ([]models.FinishedGame, error)
	ListFinishedGamesByUser(userID string) ([]models.FinishedGame, error)
	Close() error
}

var (
	ErrRecordNotFound = fmt.Errorf("record not found")
)
