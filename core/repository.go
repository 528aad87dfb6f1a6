package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// AccountRecord is the stored account including the credential hash.
type AccountRecord struct {
	Account
	PasswordHash string
}

// AccountRepository defines persistence operations for accounts.
// Lookups return ErrAccountNotFound when the username is absent and wrap
// ErrStoreUnavailable for any other failure.
type AccountRepository interface {
	FindByUsername(ctx context.Context, username string) (*AccountRecord, error)
	Create(ctx context.Context, username, name, passwordHash string) (int64, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]Account, error)
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	UpdateName(ctx context.Context, username, name string) error
	SetTasks(ctx context.Context, username string, tasks []string) error
	AppendTask(ctx context.Context, username, task string) error
	// RemoveTask drops the most recent occurrence of task in one atomic step.
	// It returns ErrTaskNotFound when the account holds no such task.
	RemoveTask(ctx context.Context, username, task string) error
	SetFootprint(ctx context.Context, username string, footprint float64) error
	Delete(ctx context.Context, username string) error
}

// DBTX is the subset of *pgxpool.Pool used by PgAccountRepository.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgAccountRepository implements AccountRepository using pgxpool.
type PgAccountRepository struct {
	db DBTX
}

func NewPgAccountRepository(db DBTX) *PgAccountRepository {
	return &PgAccountRepository{db: db}
}

const accountColumns = `id, username, name, password_hash, completed_tasks, footprint, created_at`

func (r *PgAccountRepository) FindByUsername(ctx context.Context, username string) (*AccountRecord, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE username=$1`
	var a AccountRecord
	err := r.db.QueryRow(ctx, q, username).Scan(&a.ID, &a.Username, &a.Name, &a.PasswordHash, &a.CompletedTasks, &a.Footprint, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, unavailable(err)
	}
	return &a, nil
}

func (r *PgAccountRepository) Create(ctx context.Context, username, name, passwordHash string) (int64, error) {
	const q = `INSERT INTO accounts (username, name, password_hash) VALUES ($1,$2,$3) RETURNING id`
	var id int64
	if err := r.db.QueryRow(ctx, q, username, name, passwordHash).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAccountExists
		}
		return 0, unavailable(err)
	}
	return id, nil
}

func (r *PgAccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// List returns all accounts ordered by id, without password hashes.
func (r *PgAccountRepository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, username, name, completed_tasks, footprint, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, unavailable(err)
	}
	defer rows.Close()
	var items []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Username, &a.Name, &a.CompletedTasks, &a.Footprint, &a.CreatedAt); err != nil {
			return nil, unavailable(err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable(err)
	}
	return items, nil
}

func (r *PgAccountRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash=$2 WHERE username=$1`, username, passwordHash)
}

func (r *PgAccountRepository) UpdateName(ctx context.Context, username, name string) error {
	return r.exec(ctx, `UPDATE accounts SET name=$2 WHERE username=$1`, username, name)
}

func (r *PgAccountRepository) SetTasks(ctx context.Context, username string, tasks []string) error {
	if tasks == nil {
		tasks = []string{}
	}
	return r.exec(ctx, `UPDATE accounts SET completed_tasks=$2 WHERE username=$1`, username, tasks)
}

func (r *PgAccountRepository) AppendTask(ctx context.Context, username, task string) error {
	return r.exec(ctx, `UPDATE accounts SET completed_tasks=array_append(completed_tasks, $2) WHERE username=$1`, username, task)
}

// removeTaskQuery rewrites completed_tasks without the highest-ordinality
// match of $2. Both subqueries read the row being updated, so a concurrent
// array_append is re-read after the row lock instead of being overwritten.
const removeTaskQuery = `UPDATE accounts SET completed_tasks = (
	SELECT COALESCE(array_agg(t.task ORDER BY t.pos), '{}')
	FROM unnest(completed_tasks) WITH ORDINALITY AS t(task, pos)
	WHERE t.pos <> (
		SELECT max(u.pos) FROM unnest(completed_tasks) WITH ORDINALITY AS u(task, pos) WHERE u.task = $2
	)
) WHERE username=$1 AND $2 = ANY(completed_tasks)`

func (r *PgAccountRepository) RemoveTask(ctx context.Context, username, task string) error {
	tag, err := r.db.Exec(ctx, removeTaskQuery, username, task)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username=$1)`, username).Scan(&exists); err != nil {
		return unavailable(err)
	}
	if exists {
		return ErrTaskNotFound
	}
	return ErrAccountNotFound
}

func (r *PgAccountRepository) SetFootprint(ctx context.Context, username string, footprint float64) error {
	return r.exec(ctx, `UPDATE accounts SET footprint=$2 WHERE username=$1`, username, footprint)
}

func (r *PgAccountRepository) Delete(ctx context.Context, username string) error {
	return r.exec(ctx, `DELETE FROM accounts WHERE username=$1`, username)
}

// exec runs a single-row statement and reports ErrAccountNotFound when nothing matched.
func (r *PgAccountRepository) exec(ctx context.Context, q string, args ...any) error {
	tag, err := r.db.Exec(ctx, q, args...)
	if err != nil {
		return unavailable(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// ensure interface compliance
var _ AccountRepository = (*PgAccountRepository)(nil)
