package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"shopcart-service/repository"
)

const sessionTokenType = "session"

var ErrInvalidSession = errors.New("invalid session token")

// SessionClaims is the payload of the session cookie.
type SessionClaims struct {
	Guest bool   `json:"guest"`
	Type  string `json:"typ"`
	jwt.RegisteredClaims
}

// IdentityID is the subject the session was issued for.
func (c *SessionClaims) IdentityID() string { return c.Subject }

// Remaining is how long the token stays valid after now.
func (c *SessionClaims) Remaining(now time.Time) time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	return c.ExpiresAt.Time.Sub(now)
}

// TokenService mints, verifies and revokes session credentials.
type TokenService interface {
	Issue(identityID string, guest bool) (string, *SessionClaims, error)
	Verify(ctx context.Context, token string) (*SessionClaims, error)
	Revoke(ctx context.Context, claims *SessionClaims) error
	TTL() time.Duration
}

type jwtTokenService struct {
	secret  []byte
	ttl     time.Duration
	revoker repository.SessionRevoker
	now     func() time.Time
}

func NewTokenService(secret string, ttl time.Duration, revoker repository.SessionRevoker) TokenService {
	return &jwtTokenService{
		secret:  []byte(secret),
		ttl:     ttl,
		revoker: revoker,
		now:     time.Now,
	}
}

func (s *jwtTokenService) TTL() time.Duration { return s.ttl }

func (s *jwtTokenService) Issue(identityID string, guest bool) (string, *SessionClaims, error) {
	now := s.now()
	claims := &SessionClaims{
		Guest: guest,
		Type:  sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session token: %w", err)
	}
	return signed, claims, nil
}

// Verify checks signature, expiry, token type and the revocation list.
func (s *jwtTokenService) Verify(ctx context.Context, token string) (*SessionClaims, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}

	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidSession
	}
	if claims.Type != sessionTokenType || claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	if s.revoker != nil {
		revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check session revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidSession
		}
	}
	return claims, nil
}

// Revoke blocks the token for the rest of its lifetime.
func (s *jwtTokenService) Revoke(ctx context.Context, claims *SessionClaims) error {
	if claims == nil || s.revoker == nil {
		return nil
	}
	return s.revoker.Revoke(ctx, claims.ID, claims.Remaining(s.now()))
}
