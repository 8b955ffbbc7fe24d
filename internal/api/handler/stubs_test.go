package handler

import (
	"context"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/api/middleware"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/core/ports"
	"github.com/poklin/poklin/internal/pkg/config"
)

type stubRegistrar struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, error)
}

func (s *stubRegistrar) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	return s.registerFn(ctx, in)
}

type stubCredentials struct {
	authenticateFn func(ctx context.Context, email, password string) (*domain.Identity, error)
}

func (s *stubCredentials) ID() string               { return "credentials" }
func (s *stubCredentials) Type() ports.ProviderType { return ports.ProviderCredentials }
func (s *stubCredentials) Authenticate(ctx context.Context, email, password string) (*domain.Identity, error) {
	return s.authenticateFn(ctx, email, password)
}

type stubSessions struct {
	issueErr error
}

func (s *stubSessions) Issue(identity domain.Identity) (string, *domain.Claims, error) {
	if s.issueErr != nil {
		return "", nil, s.issueErr
	}
	now := time.Now().UTC().Truncate(time.Second)
	return "token-" + identity.ID, &domain.Claims{UserID: identity.ID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}, nil
}

func (s *stubSessions) Read(token string) (*domain.Claims, error) {
	return nil, domain.ErrSessionInvalid
}

func (s *stubSessions) NeedsRenewal(*domain.Claims) bool { return false }

func (s *stubSessions) MaxAge() time.Duration { return time.Hour }

type stubUsers struct {
	mu    sync.Mutex
	users map[string]*domain.User
	err   error
	finds int
}

func (s *stubUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUserNotFound
}

func (s *stubUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finds++
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func testJar() *cookie.Session {
	return cookie.NewSession(&config.AuthConfig{})
}

func testStateJar() *cookie.OAuthState {
	return cookie.NewOAuthState(&config.AuthConfig{}, 0)
}

func newEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// signIn marks the context as carrying a verified session for userID.
func signIn(c echo.Context, userID string) {
	c.Set(middleware.ContextUserID, userID)
	c.Set(middleware.ContextClaims, &domain.Claims{UserID: userID, ExpiresAt: time.Now().Add(time.Hour)})
}

func nopLog() zerolog.Logger { return zerolog.Nop() }
