package main

import (
	"context"
	"log"
	"os"

	"github.com/autonova/project-service/internal/api"
	"github.com/autonova/project-service/internal/config"
	"github.com/autonova/project-service/internal/engine"
	"github.com/autonova/project-service/internal/outbox"
	"github.com/autonova/project-service/internal/seed"
	"github.com/autonova/project-service/internal/store"
)

func main() {
	cfg := config.Load()
	logger := config.NewLogger(os.Stdout, cfg.LogLevel)

	logger.Info("projectd: starting",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
	)

	db, err := store.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	eng := engine.New(db, logger)

	if cfg.SeedDemo {
		if err := seed.Demo(context.Background(), eng, logger); err != nil {
			log.Fatalf("failed to seed demo data: %v", err)
		}
	}

	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatcher := outbox.NewDispatcher(db, &outbox.LogPublisher{Logger: logger}, logger,
		cfg.DrainInterval, cfg.DrainBatch)
	dispatcher.Run(dispatchCtx)

	srv := api.NewServer(cfg.ListenAddr, eng, logger)
	if err := srv.Run(); err != nil {
		stopDispatch()
		dispatcher.Wait()
		log.Fatalf("server error: %v", err)
	}

	stopDispatch()
	dispatcher.Wait()
}
