package core

import (
	"context"
	"database/sql"
	"time"
)

// PgRevocationStore implements RevocationStore on the revoked_tokens table.
type PgRevocationStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPgRevocationStore(db *sql.DB) *PgRevocationStore {
	return &PgRevocationStore{db: db, now: time.Now}
}

var _ RevocationStore = (*PgRevocationStore)(nil)

func (s *PgRevocationStore) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	const q = `INSERT INTO revoked_tokens (token_id, expires_at) VALUES ($1, $2) ON CONFLICT (token_id) DO NOTHING`
	if _, err := s.db.ExecContext(ctx, q, tokenID, expiresAt.UTC()); err != nil {
		return unavailable(err)
	}
	return nil
}

// IsRevoked ignores rows past expiry so an unswept table still answers correctly.
func (s *PgRevocationStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	const q = `SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE token_id = $1 AND expires_at > $2)`
	var exists bool
	if err := s.db.QueryRowContext(ctx, q, tokenID, s.now().UTC()).Scan(&exists); err != nil {
		return false, unavailable(err)
	}
	return exists, nil
}

func (s *PgRevocationStore) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM revoked_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, unavailable(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}
