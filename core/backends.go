package core

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// Backends bundles the stores selected by Config.
type Backends struct {
	Accounts   AccountRepository
	Revocation RevocationStore
	SQL        *sql.DB
	closers    []func()
}

// OpenBackends connects the account store and revocation store named in cfg.
// DatabaseURL "memory" keeps accounts in process memory.
func OpenBackends(ctx context.Context, cfg Config) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL == "memory" {
		b.Accounts = NewMemoryAccountRepository()
	} else {
		sqlDB, err := OpenSQL(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		b.SQL = sqlDB
		b.closers = append(b.closers, func() { sqlDB.Close() })
		if err := Migrate(ctx, sqlDB); err != nil {
			b.Close()
			return nil, err
		}

		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect database: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		b.Accounts = NewPgAccountRepository(pool)
	}

	switch cfg.RevocationBackend {
	case "redis":
		client, err := NewRedisClient(cfg.RedisURL)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("failed to connect redis: %w", err)
		}
		b.closers = append(b.closers, func() { client.Close() })
		b.Revocation = NewRedisRevocationStore(client)
	case "postgres":
		if b.SQL == nil {
			b.Close()
			return nil, fmt.Errorf("postgres revocation backend needs a database url")
		}
		b.Revocation = NewPgRevocationStore(b.SQL)
	default:
		b.Revocation = NewMemoryRevocationStore()
	}
	log.Printf("backends ready accounts=%T revocation=%s", b.Accounts, cfg.RevocationBackend)
	return b, nil
}

// Close releases connections in reverse order of opening.
func (b *Backends) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}
