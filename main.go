package main

import (
	"github.com/drinkcal/roomserver/config"
	"github.com/drinkcal/roomserver/logger"
	"github.com/drinkcal/roomserver/monitor"
	"github.com/drinkcal/roomserver/persistence"
	"github.com/drinkcal/roomserver/server"
	"github.com/drinkcal/roomserver/timer"
)

func main() {
	logger.Init()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		logger.Log.Fatalf("Failed to load configuration: %v", err)
	}

	var db persistence.Database
	switch cfg.Database.Driver {
	case "postgres":
		db, err = persistence.NewPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	default:
		db, err = persistence.NewGormPostgreSQL(
			cfg.Database.Postgres.Host,
			cfg.Database.Postgres.Port,
			cfg.Database.Postgres.User,
			cfg.Database.Postgres.Password,
			cfg.Database.Postgres.DBName,
		)
	}
	if err != nil {
		logger.Log.Fatalf("Failed to connect to database: %v", err)
	}
	logger.Log.Info("Database connection successful.")

	timers := timer.NewManager()
	defer timers.Stop()

	gameServer := server.NewGameServer(cfg.Server.HTTPAddress, cfg.Server.RPCAddress, db, timers, cfg.Room.EmptyRoomTTL)

	mon := monitor.NewMonitor("roomserver")
	mon.StartServer(cfg.Server.MetricsAddress)
	gameServer.SetMonitor(mon)

	logger.Log.Infof("Starting room server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
