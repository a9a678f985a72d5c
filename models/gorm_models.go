// models/gorm_models.go
package models

import (
	"time"
)

// GormFinishedGame is the finished_games row. Participants and Winner are
// stored as jsonb so the containment queries (`participants @> ?`) work
// the same way for both database drivers.
type GormFinishedGame struct {
	ID           uint           `gorm:"primaryKey"`
	GameID       string         `gorm:"uniqueIndex;not null"`
	RoomID       string         `gorm:"index;not null"`
	GameType     string         `gorm:"not null"`
	GameNumber   int            `gorm:"default:0"`
	PlayersCount int            `gorm:"default:0"`
	Participants []string       `gorm:"serializer:json;type:jsonb;not null"`
	Winner       *WinnerSummary `gorm:"serializer:json;type:jsonb"`
	FinishedAt   time.Time
	CreatedAt    time.Time
}

func (GormFinishedGame) TableName() string {
	return "finished_games"
}

// ToFinishedGame converts the row back to the domain record.
func (m *GormFinishedGame) ToFinishedGame() FinishedGame {
	return FinishedGame{
		GameID:       m.GameID,
		RoomID:       m.RoomID,
		GameType:     m.GameType,
		GameNumber:   m.GameNumber,
		PlayersCount: m.PlayersCount,
		Participants: m.Participants,
		Winner:       m.Winner,
		FinishedAt:   m.FinishedAt,
	}
}
