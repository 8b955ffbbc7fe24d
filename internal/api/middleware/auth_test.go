package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/poklin/poklin/internal/api/cookie"
	"github.com/poklin/poklin/internal/core/domain"
	"github.com/poklin/poklin/internal/pkg/config"
)

type stubSessions struct {
	claims  *domain.Claims
	readErr error
	renew   bool
	issued  []domain.Identity
}

func (s *stubSessions) Issue(identity domain.Identity) (string, *domain.Claims, error) {
	s.issued = append(s.issued, identity)
	now := time.Now()
	return "renewed-token", &domain.Claims{UserID: identity.ID, IssuedAt: now, ExpiresAt: now.Add(time.Hour)}, nil
}

func (s *stubSessions) Read(token string) (*domain.Claims, error) {
	if s.readErr != nil {
		return nil, s.readErr
	}
	return s.claims, nil
}

func (s *stubSessions) NeedsRenewal(*domain.Claims) bool { return s.renew }

func (s *stubSessions) MaxAge() time.Duration { return time.Hour }

func newJar() *cookie.Session {
	return cookie.NewSession(&config.AuthConfig{CookieName: "sid"})
}

func requestWithCookie(value string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	if value != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: value})
	}
	return req
}

func TestLoadSession_ValidToken(t *testing.T) {
	e := echo.New()
	sessions := &stubSessions{claims: &domain.Claims{UserID: "u1"}}
	rec := httptest.NewRecorder()
	c := e.NewContext(requestWithCookie("good"), rec)

	called := false
	h := LoadSession(sessions, newJar(), zerolog.Nop())(func(c echo.Context) error {
		called = true
		if id, ok := UserID(c); !ok || id != "u1" {
			t.Fatalf("user id not set, got %q", id)
		}
		if claims, ok := SessionClaims(c); !ok || claims.UserID != "u1" {
			t.Fatalf("claims not set")
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next not called")
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("no cookie should be written for a fresh token")
	}
}

func TestLoadSession_RenewsOldToken(t *testing.T) {
	e := echo.New()
	sessions := &stubSessions{claims: &domain.Claims{UserID: "u1"}, renew: true}
	rec := httptest.NewRecorder()
	c := e.NewContext(requestWithCookie("old"), rec)

	h := LoadSession(sessions, newJar(), zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if len(sessions.issued) != 1 || sessions.issued[0].ID != "u1" {
		t.Fatalf("expected one renewal for u1, got %+v", sessions.issued)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != "renewed-token" {
		t.Fatalf("expected renewed cookie, got %+v", cookies)
	}
}

func TestLoadSession_InvalidTokenIsCleared(t *testing.T) {
	e := echo.New()
	sessions := &stubSessions{readErr: domain.ErrSessionInvalid}
	rec := httptest.NewRecorder()
	c := e.NewContext(requestWithCookie("tampered"), rec)

	h := LoadSession(sessions, newJar(), zerolog.Nop())(func(c echo.Context) error {
		if _, ok := UserID(c); ok {
			t.Fatalf("user id must not be set")
		}
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].MaxAge >= 0 {
		t.Fatalf("expected cleared cookie, got %+v", cookies)
	}
}

func TestLoadSession_NoCookie(t *testing.T) {
	e := echo.New()
	sessions := &stubSessions{readErr: errors.New("must not be called")}
	c := e.NewContext(requestWithCookie(""), httptest.NewRecorder())

	h := LoadSession(sessions, newJar(), zerolog.Nop())(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
}

func TestRequireSession_RedirectsAnonymous(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)

	h := RequireSession("/auth/login", zerolog.Nop())(func(c echo.Context) error {
		t.Fatalf("should not reach next")
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get(echo.HeaderLocation); loc != "/auth/login" {
		t.Fatalf("expected redirect to /auth/login, got %q", loc)
	}
}

func TestRequireSession_PassesAuthenticated(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/dashboard", nil), rec)
	c.Set(ContextUserID, "u1")

	called := false
	h := RequireSession("/auth/login", zerolog.Nop())(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected next to run, code=%d", rec.Code)
	}
}
