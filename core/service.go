package core

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// accountTimeout bounds a single account-store round trip.
const accountTimeout = 3 * time.Second

// RepositoryCredentialChecker checks passwords against bcrypt hashes in an AccountRepository.
type RepositoryCredentialChecker struct {
	accounts AccountRepository
}

func NewRepositoryCredentialChecker(accounts AccountRepository) *RepositoryCredentialChecker {
	return &RepositoryCredentialChecker{accounts: accounts}
}

// Authenticate returns the account when password matches its stored hash.
// Errors: ErrMissingCredentials, ErrAccountNotFound, ErrInvalidCredentials,
// or a wrapped ErrStoreUnavailable.
func (s *RepositoryCredentialChecker) Authenticate(ctx context.Context, username, password string) (Account, error) {
	if strings.TrimSpace(username) == "" || password == "" {
		return Account{}, ErrMissingCredentials
	}

	ctx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()

	a, err := s.accounts.FindByUsername(ctx, username)
	if err != nil {
		return Account{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(a.PasswordHash), []byte(password)) != nil {
		return Account{}, ErrInvalidCredentials
	}
	return a.Account, nil
}

// SessionService ties credential checking, token issuance, verification and
// revocation into the login / logout flows.
type SessionService struct {
	credentials CredentialChecker
	codec       *TokenCodec
	registry    *RevocationRegistry
	verifier    *SessionVerifier
	ttl         time.Duration
}

func NewSessionService(credentials CredentialChecker, codec *TokenCodec, registry *RevocationRegistry, verifier *SessionVerifier, ttl time.Duration) *SessionService {
	return &SessionService{
		credentials: credentials,
		codec:       codec,
		registry:    registry,
		verifier:    verifier,
		ttl:         ttl,
	}
}

// Login verifies the password before minting a token.
func (s *SessionService) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.credentials.Authenticate(ctx, username, password)
	if err != nil {
		loginsTotal.WithLabelValues(loginResult(err)).Inc()
		return "", err
	}
	token, err := s.codec.Issue(account.Username, s.ttl)
	if err != nil {
		loginsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	loginsTotal.WithLabelValues("success").Inc()
	return token, nil
}

// Issue mints a token without a password check, for freshly created accounts.
func (s *SessionService) Issue(identity string) (string, error) {
	return s.codec.Issue(identity, s.ttl)
}

// Verify delegates to the session verifier.
func (s *SessionService) Verify(ctx context.Context, token string) (Session, error) {
	return s.verifier.Verify(ctx, token)
}

// Logout revokes token when it verifies as Valid. The returned session
// carries the outcome the caller should report.
func (s *SessionService) Logout(ctx context.Context, token string) (Session, error) {
	sess, err := s.verifier.Verify(ctx, token)
	if err != nil || sess.Status != SessionValid {
		return sess, err
	}
	if err := s.registry.Revoke(ctx, token); err != nil {
		return sess, err
	}
	return sess, nil
}

func loginResult(err error) string {
	switch {
	case errors.Is(err, ErrMissingCredentials):
		return "missing"
	case errors.Is(err, ErrAccountNotFound), errors.Is(err, ErrInvalidCredentials):
		return "rejected"
	default:
		return "error"
	}
}
