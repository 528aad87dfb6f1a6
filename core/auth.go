package core

import (
	"context"
	"errors"
	"time"
)

// Account represents an authenticated principal returned to handlers.
type Account struct {
	ID             int64     `json:"id"`
	Username       string    `json:"username"`
	Name           string    `json:"name"`
	CompletedTasks []string  `json:"completedTasks"`
	Footprint      *float64  `json:"footprint,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Score is the leaderboard score: one point per completed task.
func (a Account) Score() int {
	return len(a.CompletedTasks)
}

var (
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrInvalidCredentials is returned when the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotFound is returned when no account has the given username.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountExists is returned by Create when the username is taken.
	ErrAccountExists = errors.New("account already exists")
	// ErrTaskNotFound is returned by RemoveTask when the task was never completed.
	ErrTaskNotFound = errors.New("task not found")
	// ErrStoreUnavailable wraps failures of a backing store (database, redis).
	ErrStoreUnavailable = errors.New("store unavailable")
)

// CredentialChecker validates a submitted username/password pair.
type CredentialChecker interface {
	Authenticate(ctx context.Context, username, password string) (Account, error)
}
