package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/pkg/config"
)

const (
	defaultSessionMaxAge    = 30 * 24 * time.Hour
	defaultSessionUpdateAge = 24 * time.Hour
)

// JWTSessionIssuer mints HS256 session tokens carrying the user id as the
// subject. Tokens are verified without any server-side lookup.
type JWTSessionIssuer struct {
	secret    []byte
	maxAge    time.Duration
	updateAge time.Duration
	now       func() time.Time
}

func NewJWTSessionIssuer(cfg *config.AuthConfig) (*JWTSessionIssuer, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session issuer: secret must be provided")
	}
	maxAge := cfg.SessionMaxAge
	if maxAge <= 0 {
		maxAge = defaultSessionMaxAge
	}
	updateAge := cfg.SessionUpdateAge
	if updateAge <= 0 {
		updateAge = defaultSessionUpdateAge
	}
	return &JWTSessionIssuer{
		secret:    []byte(cfg.SessionSecret),
		maxAge:    maxAge,
		updateAge: updateAge,
		now:       time.Now,
	}, nil
}

// Issue signs a new token for the identity.
func (s *JWTSessionIssuer) Issue(identity domain.Identity) (string, *domain.Claims, error) {
	if identity.ID == "" {
		return "", nil, errors.New("issue session: identity has no id")
	}

	// JWT timestamps have second precision.
	now := s.now().UTC().Truncate(time.Second)
	claims := jwt.RegisteredClaims{
		Subject:   identity.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.maxAge)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("issue session: %w", err)
	}

	return signed, &domain.Claims{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.maxAge),
	}, nil
}

// Read verifies signature, algorithm and expiry. Every failure is reported
// as domain.ErrSessionInvalid.
func (s *JWTSessionIssuer) Read(token string) (*domain.Claims, error) {
	if token == "" {
		return nil, domain.ErrSessionInvalid
	}

	var claims jwt.RegisteredClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", domain.ErrSessionInvalid, err)
	}
	if claims.Subject == "" || claims.IssuedAt == nil {
		return nil, domain.ErrSessionInvalid
	}

	return &domain.Claims{
		UserID:    claims.Subject,
		TokenID:   claims.ID,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// NeedsRenewal reports whether the token is old enough to be re-issued.
func (s *JWTSessionIssuer) NeedsRenewal(claims *domain.Claims) bool {
	return claims != nil && claims.Age(s.now()) >= s.updateAge
}

func (s *JWTSessionIssuer) MaxAge() time.Duration { return s.maxAge }
