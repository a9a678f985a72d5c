// persistence/postgresql.go
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/drinkcal/roomserver/models"
)

// PostgreSQL is the raw database/sql driver.
type PostgreSQL struct {
	db *sql.DB
}

func NewPostgreSQL(host string, port int, user, password, dbname string) (*PostgreSQL, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := initTables(db); err != nil {
		return nil, err
	}

	return &PostgreSQL{db: db}, nil
}

func initTables(db *sql.DB) error {
	_, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS finished_games (
            id SERIAL PRIMARY KEY,
            game_id VARCHAR(255) UNIQUE NOT NULL,
            room_id VARCHAR(255) NOT NULL,
            game_type VARCHAR(100) NOT NULL,
            game_number INTEGER NOT NULL DEFAULT 0,
            players_count INTEGER NOT NULL DEFAULT 0,
            participants JSONB NOT NULL,
            winner JSONB,
            finished_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
        )
    `)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
        CREATE INDEX IF NOT EXISTS idx_finished_games_room_id ON finished_games(room_id);
        CREATE INDEX IF NOT EXISTS idx_finished_games_participants ON finished_games USING GIN (participants);
    `)

	return err
}

func (p *PostgreSQL) SaveFinishedGame(game *models.FinishedGame) error {
	participants, err := json.Marshal(game.Participants)
	if err != nil {
		return err
	}

	var winner []byte
	if game.Winner != nil {
		winner, err = json.Marshal(game.Winner)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        INSERT INTO finished_games (game_id, room_id, game_type, game_number, players_count, participants, winner, finished_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `

	_, err = p.db.ExecContext(ctx, query,
		game.GameID,
		game.RoomID,
		game.GameType,
		game.GameNumber,
		game.PlayersCount,
		participants,
		winner,
		game.FinishedAt)

	return err
}

func (p *PostgreSQL) ListFinishedGamesByRoom(roomID string) ([]models.FinishedGame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT game_id, room_id, game_type, game_number, players_count, participants, winner, finished_at
        FROM finished_games
        WHERE room_id = $1
        ORDER BY finished_at ASC
    `
	rows, err := p.db.QueryContext(ctx, query, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFinishedGames(rows)
}

func (p *PostgreSQL) ListFinishedGamesByUser(userID string) ([]models.FinishedGame, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
        SELECT game_id, room_id, game_type, game_number, players_count, participants, winner, finished_at
        FROM finished_games
        WHERE participants @> $1
        ORDER BY finished_at ASC
    `
	userJSON, err := json.Marshal([]string{userID})
	if err != nil {
		return nil, err
	}

	rows, err := p.db.QueryContext(ctx, query, userJSON)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanFinishedGames(rows)
}

func (p *PostgreSQL) Close() error {
	return p.db.Close()
}

func scanFinishedGames(rows *sql.Rows) ([]models.FinishedGame, error) {
	var games []models.FinishedGame
	for rows.Next() {
		var (
			game         models.FinishedGame
			participants []byte
			winner       []byte
		)
		err := rows.Scan(
			&game.GameID,
			&game.RoomID,
			&game.GameType,
			&game.GameNumber,
			&game.PlayersCount,
			&participants,
			&winner,
			&game.FinishedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(participants, &game.Participants); err != nil {
			return nil, err
		}
		if len(winner) > 0 {
			if err := json.Unmarshal(winner, &game.Winner); err != nil {
				return nil, err
			}
		}
		games = append(games, game)
	}
	return games, rows.Err()
}
