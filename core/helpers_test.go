package core

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var testEpoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeClock is a settable time source shared by codec, stores and verifier.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: testEpoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	clock    *fakeClock
	codec    *TokenCodec
	store    *MemoryRevocationStore
	accounts *MemoryAccountRepository
	registry *RevocationRegistry
	verifier *SessionVerifier
	sessions *SessionService
	ttl      time.Duration
}

func newTestCodec(t *testing.T, clock *fakeClock) *TokenCodec {
	t.Helper()
	codec, err := NewTokenCodec([]byte("test-signing-key"), "ecohabit-test")
	require.NoError(t, err)
	codec.now = clock.Now
	return codec
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	codec := newTestCodec(t, clock)
	store := NewMemoryRevocationStore()
	store.now = clock.Now
	accounts := NewMemoryAccountRepository()
	registry := NewRevocationRegistry(codec, store)
	verifier := NewSessionVerifier(codec, registry, accounts)
	verifier.now = clock.Now
	ttl := time.Hour
	sessions := NewSessionService(NewRepositoryCredentialChecker(accounts), codec, registry, verifier, ttl)
	return &testEnv{
		clock:    clock,
		codec:    codec,
		store:    store,
		accounts: accounts,
		registry: registry,
		verifier: verifier,
		sessions: sessions,
		ttl:      ttl,
	}
}

func seedAccount(t *testing.T, repo AccountRepository, username, password string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = repo.Create(context.Background(), username, username+" name", string(hash))
	require.NoError(t, err)
}
