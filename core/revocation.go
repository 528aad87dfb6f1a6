package core

import (
	"context"
	"log"
	"sync"
	"time"
)

// RevocationStore records token IDs invalidated before their natural expiry.
//
// Implementations must make a Revoke visible to every later IsRevoked call,
// and must never report an entry as absent before its expiresAt has passed.
// Purge removes entries whose expiresAt is at or before now.
type RevocationStore interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	Purge(ctx context.Context, now time.Time) (int64, error)
}

// RevocationRegistry is the token-level view over a RevocationStore.
type RevocationRegistry struct {
	codec *TokenCodec
	store RevocationStore
}

func NewRevocationRegistry(codec *TokenCodec, store RevocationStore) *RevocationRegistry {
	return &RevocationRegistry{codec: codec, store: store}
}

// Revoke records token until its own expiry. Revoking twice is a no-op.
// A token that does not decode yields ErrMalformedToken.
func (r *RevocationRegistry) Revoke(ctx context.Context, token string) error {
	claims, err := r.codec.Decode(token)
	if err != nil {
		return err
	}
	if err := r.store.Revoke(ctx, claims.ID, claims.ExpiresAt); err != nil {
		return err
	}
	revocationsTotal.Inc()
	return nil
}

// IsRevoked reports whether token has been revoked.
func (r *RevocationRegistry) IsRevoked(ctx context.Context, token string) (bool, error) {
	claims, err := r.codec.Decode(token)
	if err != nil {
		return false, err
	}
	return r.IsRevokedID(ctx, claims.ID)
}

// IsRevokedID is IsRevoked for callers that already hold decoded claims.
func (r *RevocationRegistry) IsRevokedID(ctx context.Context, tokenID string) (bool, error) {
	return r.store.IsRevoked(ctx, tokenID)
}

// MemoryRevocationStore keeps revoked token IDs in process memory.
// Expired entries are invisible to lookups and removed by Purge.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{entries: make(map[string]time.Time), now: time.Now}
}

var _ RevocationStore = (*MemoryRevocationStore)(nil)

func (s *MemoryRevocationStore) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.entries[tokenID]; !ok || expiresAt.After(cur) {
		s.entries[tokenID] = expiresAt
	}
	return nil
}

func (s *MemoryRevocationStore) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	s.mu.RLock()
	exp, ok := s.entries[tokenID]
	s.mu.RUnlock()
	return ok && s.now().Before(exp), nil
}

func (s *MemoryRevocationStore) Purge(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, exp := range s.entries {
		if !now.Before(exp) {
			delete(s.entries, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of retained entries, expired or not.
func (s *MemoryRevocationStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// RevocationSweeper periodically purges expired revocation entries.
type RevocationSweeper struct {
	store    RevocationStore
	interval time.Duration
	now      func() time.Time
}

func NewRevocationSweeper(store RevocationStore, interval time.Duration) *RevocationSweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &RevocationSweeper{store: store, interval: interval, now: time.Now}
}

// Run sweeps once immediately and then on every tick until ctx is done.
func (s *RevocationSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs a single purge pass and returns the number of removed entries.
func (s *RevocationSweeper) Sweep(ctx context.Context) int64 {
	n, err := s.store.Purge(ctx, s.now())
	if err != nil {
		log.Printf("revocation sweep failed err=%v", err)
		return 0
	}
	if n > 0 {
		log.Printf("revocation sweep purged=%d", n)
	}
	revocationsPurgedTotal.Add(float64(n))
	return n
}
