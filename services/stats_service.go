// services/stats_service.go
package services

import (
	"github.com/drinkcal/roomserver/models"
	"github.com/drinkcal/roomserver/persistence"
)

// StatsService tallies win/loss figures from the finished_games history.
type StatsService struct {
	db persistence.Database
}

func NewStatsService(db persistence.Database) *StatsService {
	return &StatsService{db: db}
}

// GetRoomStats returns the room's round count together with the given
// user's record inside that room. A round without a winner counts as a
// loss for everyone who played it.
func (s *StatsService) GetRoomStats(roomID, userID string) (*models.RoomGameStats, error) {
	games, err := s.db.ListFinishedGamesByRoom(roomID)
	if err != nil {
		return nil, err
	}

	stats := &models.RoomGameStats{
		GamesPlayed: len(games),
	}
	for i := range games {
		won, played := outcomeFor(&games[i], userID)
		if !played {
			continue
		}
		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}
	return stats, nil
}

// GetPlayerStats aggregates the user's record across every room.
func (s *StatsService) GetPlayerStats(userID string) (*models.PlayerGameStats, error) {
	games, err := s.db.ListFinishedGamesByUser(userID)
	if err != nil {
		return nil, err
	}

	stats := &models.PlayerGameStats{
		TotalGames: len(games),
	}
	for i := range games {
		won, played := outcomeFor(&games[i], userID)
		if !played {
			continue
		}
		if won {
			stats.Wins++
		} else {
			stats.Losses++
		}
	}
	return stats, nil
}

func outcomeFor(game *models.FinishedGame, userID string) (won, played bool) {
	for _, id := range game.Participants {
		if id == userID {
			played = true
			break
		}
	}
	if !played {
		return false, false
	}
	won = game.Winner != nil && game.Winner.UserID == userID
	return won, true
}
