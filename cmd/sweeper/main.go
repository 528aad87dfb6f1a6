package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecohabit-api/core"
)

// sweeper purges expired rows from the shared revoked_tokens table so API
// replicas can run without their own sweep loop.
func main() {
	cfg := core.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = core.LoadFile(path); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "sweeper.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.RevocationBackend != "postgres" {
		log.Fatalf("sweeper only serves the postgres revocation backend, got %q", cfg.RevocationBackend)
	}

	db, err := core.OpenSQL(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	defer db.Close()

	if err := core.Migrate(ctx, db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	log.Printf("sweeper started interval=%s", cfg.RevocationSweepInterval)
	core.NewRevocationSweeper(core.NewPgRevocationStore(db), cfg.RevocationSweepInterval).Run(ctx)
	log.Printf("sweeper stopped")
}
