// models/models.go
package models

import (
	"time"
)

// Participant is a user's membership record within a room. The identity
// fields are a snapshot taken at join time and are not refreshed if the
// user's profile changes later.
type Participant struct {
	UserID      string    `json:"userId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email"`
	PhotoURL    string    `json:"photoURL"`
	JoinedAt    time.Time `json:"joinedAt"`
	Ready       bool      `json:"ready"`
}

// ChatMessage is one entry of a room's append-only chat log. System
// messages carry Type == "system" and no author identity.
type ChatMessage struct {
	ID          string    `json:"id"`
	Type        string    `json:"type,omitempty"`
	UserID      string    `json:"userId,omitempty"`
	DisplayName string    `json:"displayName,omitempty"`
	Email       string    `json:"email,omitempty"`
	PhotoURL    string    `json:"photoURL,omitempty"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
}

const MessageTypeSystem = "system"

// WinnerSummary identifies the winner of one concluded round.
type WinnerSummary struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
}

// FinishedGame is the durable record of a concluded round, one per round.
// Winner is nil when every hand busted.
type FinishedGame struct {
	GameID       string         `json:"gameId"`
	RoomID       string         `json:"roomId"`
	GameType     string         `json:"gameType"`
	GameNumber   int            `json:"gameNumber"`
	PlayersCount int            `json:"playersCount"`
	Participants []string       `json:"participants"`
	Winner       *WinnerSummary `json:"winner,omitempty"`
	FinishedAt   time.Time      `json:"finishedAt"`
}

// RoomGameStats are the per-room figures shown next to the game field:
// total rounds played in the room and the requesting user's record.
type RoomGameStats struct {
	GamesPlayed int `json:"gamesPlayed"`
	Wins        int `json:"wins"`
	Losses      int `json:"losses"`
}

// PlayerGameStats aggregate a user's record across all rooms.
type PlayerGameStats struct {
	TotalGames int `json:"totalGames"`
	Wins       int `json:"wins"`
	Losses     int `json:"losses"`
}
