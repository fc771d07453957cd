package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/bigyanadk07/BugTracker"
)

// DefaultTokenTTL is the lifetime of an issued token.
const DefaultTokenTTL = 24 * time.Hour

var (
	// ErrExpiredToken indicates a token whose exp is not after the clock.
	ErrExpiredToken = errors.New("token expired")
	// ErrMalformedToken covers bad structure, bad signature, wrong
	// algorithm and a missing subject.
	ErrMalformedToken = errors.New("token malformed")
	// ErrInvalidKey indicates an empty signing key.
	ErrInvalidKey = errors.New("signing key required")
)

// Claims is the verified content of a token. Role is a routing hint only;
// callers re-fetch the live principal.
type Claims struct {
	Subject   string
	Role      bugtracker.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	ID   string `json:"id"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenCodec issues and verifies HS256 bearer tokens. It holds no mutable
// state; output depends only on the key, the clock passed in and the input.
type TokenCodec struct {
	key []byte
	ttl time.Duration
}

// NewTokenCodec returns a codec signing with secret. A non-positive ttl
// selects DefaultTokenTTL.
func NewTokenCodec(secret []byte, ttl time.Duration) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrInvalidKey
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	key := make([]byte, len(secret))
	copy(key, secret)
	return &TokenCodec{key: key, ttl: ttl}, nil
}

// TTL returns the token lifetime.
func (c *TokenCodec) TTL() time.Duration {
	return c.ttl
}

// Issue signs a token for principal valid from now until now+TTL.
func (c *TokenCodec) Issue(principal bugtracker.Principal, now time.Time) (string, error) {
	if principal.ID == "" {
		return "", errors.New("issue token: principal id required")
	}
	claims := tokenClaims{
		ID:   principal.ID,
		Role: string(principal.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principal.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm and expiry against now. Token times
// have whole-second granularity: Issue truncates iat and exp, so a token
// issued at 12:00:00.7 expires at 12:00:00 plus the TTL.
func (c *TokenCodec) Verify(token string, now time.Time) (Claims, error) {
	parsed := &tokenClaims{}
	_, err := jwt.ParseWithClaims(token, parsed, func(*jwt.Token) (any, error) {
		return c.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Claims{}, mapJWTError(err)
	}

	subject := parsed.Subject
	if subject == "" {
		subject = parsed.ID
	}
	if subject == "" {
		return Claims{}, ErrMalformedToken
	}

	out := Claims{
		Subject: subject,
		Role:    bugtracker.Role(parsed.Role),
	}
	if parsed.IssuedAt != nil {
		out.IssuedAt = parsed.IssuedAt.Time
	}
	if parsed.ExpiresAt != nil {
		out.ExpiresAt = parsed.ExpiresAt.Time
	}
	return out, nil
}

func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	}
	return fmt.Errorf("%w: %v", ErrMalformedToken, err)
}
