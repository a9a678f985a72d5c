// persistence/gorm_postgresql.go
package persistence

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/drinkcal/roomserver/models"
)

// GormPostgreSQL is the GORM-backed driver.
type GormPostgreSQL struct {
	db *gorm.DB
}

func NewGormPostgreSQL(host string, port int, user, password, dbname string) (*GormPostgreSQL, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: time.Second,
			LogLevel:      gormlogger.Silent,
			Colorful:      false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&models.GormFinishedGame{}); err != nil {
		return nil, err
	}

	return &GormPostgreSQL{db: db}, nil
}

func (p *GormPostgreSQL) SaveFinishedGame(game *models.FinishedGame) error {
	row := models.GormFinishedGame{
		GameID:       game.GameID,
		RoomID:       game.RoomID,
		GameType:     game.GameType,
		GameNumber:   game.GameNumber,
		PlayersCount: game.PlayersCount,
		Participants: game.Participants,
		Winner:       game.Winner,
		FinishedAt:   game.FinishedAt,
	}
	return p.db.Create(&row).Error
}

func (p *GormPostgreSQL) ListFinishedGamesByRoom(roomID string) ([]models.FinishedGame, error) {
	var rows []models.GormFinishedGame
	err := p.db.
		Where("room_id = ?", roomID).
		Order("finished_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toFinishedGames(rows), nil
}

func (p *GormPostgreSQL) ListFinishedGamesByUser(userID string) ([]models.FinishedGame, error) {
	var rows []models.GormFinishedGame
	err := p.db.
		Where("participants @> ?", fmt.Sprintf(`["%s"]`, userID)).
		Order("finished_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toFinishedGames(rows), nil
}

func (p *GormPostgreSQL) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toFinishedGames(rows []models.GormFinishedGame) []models.FinishedGame {
	games := make([]models.FinishedGame, 0, len(rows))
	for i := range rows {
		games = append(games, rows[i].ToFinishedGame())
	}
	return games
}
