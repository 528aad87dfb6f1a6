package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
)

// BootstrapUsername is the account created by BootstrapAccount.
const BootstrapUsername = "demo"

// BootstrapAccount creates an initial account when the store is empty.
// It is idempotent: if any account exists, it does nothing.
func BootstrapAccount(ctx context.Context, repo AccountRepository, cfg Config) error {
	if !cfg.BootstrapAccountEnabled {
		return nil
	}

	n, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(24)
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	if _, err := repo.Create(ctx, BootstrapUsername, "Demo", string(hash)); err != nil {
		if errors.Is(err, ErrAccountExists) {
			return nil
		}
		return err
	}

	if cfg.BootstrapPasswordPath != "" {
		if err := os.WriteFile(cfg.BootstrapPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Printf("bootstrap account created username=%s; password written to %s", BootstrapUsername, cfg.BootstrapPasswordPath)
	} else {
		log.Printf("bootstrap account created username=%s password=%s", BootstrapUsername, password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
