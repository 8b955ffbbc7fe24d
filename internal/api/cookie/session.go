// Package cookie reads and writes the HTTP-only session and OAuth state cookies.
package cookie

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/pkg/config"
)

const defaultName = "poklin.session-token"

// Session knows the name and flags of the session cookie.
type Session struct {
	name   string
	secure bool
}

func NewSession(cfg *config.AuthConfig) *Session {
	name := cfg.CookieName
	if name == "" {
		name = defaultName
	}
	return &Session{name: name, secure: cfg.SecureCookie}
}

func (s *Session) Name() string { return s.name }

// Token returns the raw token, or "" when the cookie is absent.
func (s *Session) Token(c echo.Context) string {
	ck, err := c.Cookie(s.name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Write stores token until expiresAt.
func (s *Session) Write(c echo.Context, token string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 1 {
		maxAge = 1
	}
	c.SetCookie(&http.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt.UTC(),
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear tells the browser to drop the cookie. The token itself stays valid
// until it expires.
func (s *Session) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
