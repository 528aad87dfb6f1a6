package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrMalformedToken covers decode failures and signature mismatches.
	ErrMalformedToken = errors.New("malformed token")
	// ErrSigning is a configuration-level failure: the signing key is unusable.
	ErrSigning = errors.New("token signing failed")
)

// Claims is the decoded, signature-verified payload of a session token.
type Claims struct {
	ID        string
	Identity  string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenCodec issues and decodes HS256-signed session tokens.
// It holds no mutable state and is safe for concurrent use.
type TokenCodec struct {
	key    []byte
	issuer string
	now    func() time.Time
	newID  func() string
	parser *jwt.Parser
}

// NewTokenCodec returns a codec for key. An empty key is a fatal configuration error.
func NewTokenCodec(key []byte, issuer string) (*TokenCodec, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("%w: empty signing key", ErrSigning)
	}
	return &TokenCodec{
		key:    key,
		issuer: issuer,
		now:    time.Now,
		newID:  uuid.NewString,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Issue mints a token for identity valid for at least ttl from now. The
// encoded expiry is rounded up to jwt.TimePrecision, so ttl must be at
// least that long.
func (c *TokenCodec) Issue(identity string, ttl time.Duration) (string, error) {
	if strings.TrimSpace(identity) == "" {
		return "", errors.New("empty identity")
	}
	if ttl < jwt.TimePrecision {
		return "", fmt.Errorf("ttl %s is below token precision %s", ttl, jwt.TimePrecision)
	}
	now := c.now()
	claims := jwt.RegisteredClaims{
		ID:        c.newID(),
		Subject:   identity,
		Issuer:    c.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(ceilTime(now.Add(ttl), jwt.TimePrecision)),
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSigning, err)
	}
	return s, nil
}

// Decode verifies the signature and returns the claims. Expiry and
// revocation are not consulted here.
func (c *TokenCodec) Decode(token string) (Claims, error) {
	var rc jwt.RegisteredClaims
	_, err := c.parser.ParseWithClaims(token, &rc, func(*jwt.Token) (any, error) {
		return c.key, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if rc.Subject == "" || rc.ID == "" || rc.ExpiresAt == nil || rc.IssuedAt == nil {
		return Claims{}, fmt.Errorf("%w: missing required claim", ErrMalformedToken)
	}
	if c.issuer != "" && rc.Issuer != c.issuer {
		return Claims{}, fmt.Errorf("%w: unexpected issuer %q", ErrMalformedToken, rc.Issuer)
	}
	return Claims{
		ID:        rc.ID,
		Identity:  rc.Subject,
		IssuedAt:  rc.IssuedAt.Time,
		ExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

// ceilTime rounds t up to a multiple of d.
func ceilTime(t time.Time, d time.Duration) time.Time {
	r := t.Truncate(d)
	if r.Before(t) {
		r = r.Add(d)
	}
	return r
}
