package core

import (
	"context"
	"errors"
	"log"
	"time"
)

// SessionStatus is the outcome of verifying a presented token.
type SessionStatus int

const (
	SessionValid SessionStatus = iota
	SessionExpired
	SessionUnknownIdentity
	// SessionInvalid covers malformed, forged and revoked tokens alike.
	SessionInvalid
)

func (s SessionStatus) String() string {
	switch s {
	case SessionValid:
		return "valid"
	case SessionExpired:
		return "expired"
	case SessionUnknownIdentity:
		return "unknown_identity"
	default:
		return "invalid"
	}
}

// Session is the result of a verification. Claims is set once the token
// decoded; Account only when Status is SessionValid.
type Session struct {
	Status  SessionStatus
	Claims  Claims
	Account Account
}

// SessionVerifier decides the outcome for a token on every call. It keeps no
// per-token memory.
type SessionVerifier struct {
	codec    *TokenCodec
	registry *RevocationRegistry
	accounts AccountRepository
	now      func() time.Time
}

func NewSessionVerifier(codec *TokenCodec, registry *RevocationRegistry, accounts AccountRepository) *SessionVerifier {
	return &SessionVerifier{codec: codec, registry: registry, accounts: accounts, now: time.Now}
}

// Verify evaluates, in order: signature/decode, revocation, expiry, identity.
// The only error returned is a wrapped ErrStoreUnavailable from the account
// lookup; every other failure is folded into Status.
func (v *SessionVerifier) Verify(ctx context.Context, token string) (Session, error) {
	sess, err := v.verify(ctx, token)
	if err == nil {
		sessionVerificationsTotal.WithLabelValues(sess.Status.String()).Inc()
	}
	return sess, err
}

func (v *SessionVerifier) verify(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{Status: SessionInvalid}, nil
	}
	claims, err := v.codec.Decode(token)
	if err != nil {
		return Session{Status: SessionInvalid}, nil
	}
	sess := Session{Status: SessionInvalid, Claims: claims}

	revoked, err := v.registry.IsRevokedID(ctx, claims.ID)
	if err != nil {
		// Fail closed: an unreadable registry must not let a revoked token through.
		log.Printf("revocation lookup failed jti=%s err=%v", claims.ID, err)
		return sess, nil
	}
	if revoked {
		return sess, nil
	}

	if !v.now().Before(claims.ExpiresAt) {
		sess.Status = SessionExpired
		return sess, nil
	}

	lookupCtx, cancel := context.WithTimeout(ctx, accountTimeout)
	defer cancel()
	rec, err := v.accounts.FindByUsername(lookupCtx, claims.Identity)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			sess.Status = SessionUnknownIdentity
			return sess, nil
		}
		return sess, err
	}

	sess.Status = SessionValid
	sess.Account = rec.Account
	return sess, nil
}
