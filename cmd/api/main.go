package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"ecohabit-api/core"
)

func main() {
	cfg := core.Load()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		var err error
		if cfg, err = core.LoadFile(path); err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logCloser, err := core.SetupLogging(cfg, "api.log")
	if err != nil {
		log.Fatalf("failed to setup logging: %v", err)
	}
	defer logCloser.Close()

	if cfg.SigningKey == core.DefaultSigningKey {
		log.Printf("WARNING: using the default signing key; set SIGNING_KEY")
	}

	backends, err := core.OpenBackends(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to open backends: %v", err)
	}
	defer backends.Close()

	if err := core.BootstrapAccount(ctx, backends.Accounts, cfg); err != nil {
		log.Fatalf("bootstrap account failed: %v", err)
	}

	codec, err := core.NewTokenCodec([]byte(cfg.SigningKey), cfg.TokenIssuer)
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	registry := core.NewRevocationRegistry(codec, backends.Revocation)
	verifier := core.NewSessionVerifier(codec, registry, backends.Accounts)
	checker := core.NewRepositoryCredentialChecker(backends.Accounts)
	sessions := core.NewSessionService(checker, codec, registry, verifier, cfg.SessionTTL)

	go core.NewRevocationSweeper(backends.Revocation, cfg.RevocationSweepInterval).Run(ctx)

	router := core.NewRouter(cfg, sessions, backends.Accounts)

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("starting api server on %s session_ttl=%s revocation=%s", addr, cfg.SessionTTL, cfg.RevocationBackend)
	if err := router.Run(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
