package core

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func setupPostgresTest(t *testing.T) (*PgRevocationStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	store := NewPgRevocationStore(db)
	store.now = func() time.Time { return testEpoch }
	return store, mock
}

func TestPgRevocationStore(t *testing.T) {
	store, mock := setupPostgresTest(t)
	ctx := context.Background()
	exp := testEpoch.Add(time.Hour)

	t.Run("Revoke", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO revoked_tokens`).
			WithArgs("jti-1", exp).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, store.Revoke(ctx, "jti-1", exp))
	})

	t.Run("RevokeConflictIsNoop", func(t *testing.T) {
		mock.ExpectExec(`INSERT INTO revoked_tokens .* ON CONFLICT`).
			WithArgs("jti-1", exp).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.NoError(t, store.Revoke(ctx, "jti-1", exp))
	})

	t.Run("IsRevoked", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("jti-1", testEpoch).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		revoked, err := store.IsRevoked(ctx, "jti-1")
		assert.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("NotRevoked", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("jti-2", testEpoch).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		revoked, err := store.IsRevoked(ctx, "jti-2")
		assert.NoError(t, err)
		assert.False(t, revoked)
	})

	t.Run("DatabaseError", func(t *testing.T) {
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("error-token", testEpoch).
			WillReturnError(sqlmock.ErrCancelled)

		revoked, err := store.IsRevoked(ctx, "error-token")
		assert.ErrorIs(t, err, ErrStoreUnavailable)
		assert.False(t, revoked)
	})

	t.Run("Purge", func(t *testing.T) {
		mock.ExpectExec(`DELETE FROM revoked_tokens WHERE expires_at <=`).
			WithArgs(testEpoch).
			WillReturnResult(sqlmock.NewResult(0, 3))

		n, err := store.Purge(ctx, testEpoch)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), n)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}
