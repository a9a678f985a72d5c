package services

import (
	"testing"
	"time"

	"github.com/drinkcal/roomserver/models"
)

// MockDatabase is a test double for the persistence.Database interface
// backed by an in-memory slice.
type MockDatabase struct {
	games []models.FinishedGame
}

func (m *MockDatabase) SaveFinishedGame(game *models.FinishedGame) error {
	m.games = append(m.games, *game)
	return nil
}

func (m *MockDatabase) ListFinishedGamesByRoom(roomID string) ([]models.FinishedGame, error) {
	var result []models.FinishedGame
	for _, g := range m.games {
		if g.RoomID == roomID {
			result = append(result, g)
		}
	}
	return result, nil
}

func (m *MockDatabase) ListFinishedGamesByUser(userID string) ([]models.FinishedGame, error) {
	var result []models.FinishedGame
	for _, g := range m.games {
		for _, id := range g.Participants {
			if id == userID {
				result = append(result, g)
				break
			}
		}
	}
	return result, nil
}

func (m *MockDatabase) Close() error { return nil }

func finishedGame(roomID string, participants []string, winnerID string) models.FinishedGame {
	g := models.FinishedGame{
		GameID:       roomID + "-" + winnerID,
		RoomID:       roomID,
		GameType:     "21",
		PlayersCount: len(participants),
		Participants: participants,
		FinishedAt:   time.Now(),
	}
	if winnerID != "" {
		g.Winner = &models.WinnerSummary{UserID: winnerID, DisplayName: winnerID, Score: 20}
	}
	return g
}

func TestStatsService_GetRoomStats(t *testing.T) {
	db := &MockDatabase{games: []models.FinishedGame{
		finishedGame("room1", []string{"user1", "user2"}, "user1"),
		finishedGame("room1", []string{"user1", "user2"}, "user2"),
		finishedGame("room1", []string{"user2", "user3"}, "user3"),
		finishedGame("room2", []string{"user1"}, "user1"),
	}}
	service := NewStatsService(db)

	stats, err := service.GetRoomStats("room1", "user1")
	if err != nil {
		t.Fatalf("GetRoomStats failed: %v", err)
	}

	if stats.GamesPlayed != 3 {
		t.Errorf("Expected 3 games played in room1, got %d", stats.GamesPlayed)
	}
	if stats.Wins != 1 {
		t.Errorf("Expected 1 win for user1 in room1, got %d", stats.Wins)
	}
	if stats.Losses != 1 {
		t.Errorf("Expected 1 loss for user1 in room1, got %d", stats.Losses)
	}
}

func TestStatsService_GetRoomStats_NoWinnerCountsAsLoss(t *testing.T) {
	db := &MockDatabase{games: []models.FinishedGame{
		finishedGame("room1", []string{"user1", "user2"}, ""),
	}}
	service := NewStatsService(db)

	stats, err := service.GetRoomStats("room1", "user1")
	if err != nil {
		t.Fatalf("GetRoomStats failed: %v", err)
	}
	if stats.Wins != 0 || stats.Losses != 1 {
		t.Errorf("A bust-out round should count as a loss, got wins=%d losses=%d", stats.Wins, stats.Losses)
	}
}

func TestStatsService_GetPlayerStats(t *testing.T) {
	db := &MockDatabase{games: []models.FinishedGame{
		finishedGame("room1", []string{"user1", "user2"}, "user1"),
		finishedGame("room2", []string{"user1", "user3"}, "user3"),
		finishedGame("room3", []string{"user2", "user3"}, "user2"),
	}}
	service := NewStatsService(db)

	stats, err := service.GetPlayerStats("user1")
	if err != nil {
		t.Fatalf("GetPlayerStats failed: %v", err)
	}

	if stats.TotalGames != 2 {
		t.Errorf("Expected 2 total games for user1, got %d", stats.TotalGames)
	}
	if stats.Wins != 1 {
		t.Errorf("Expected 1 win for user1, got %d", stats.Wins)
	}
	if stats.Losses != 1 {
		t.Errorf("Expected 1 loss for user1, got %d", stats.Losses)
	}
}
