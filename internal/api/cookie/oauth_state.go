package cookie

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/poklin/poklin/internal/pkg/config"
)

const (
	stateName       = "poklin.oauth-state"
	statePath       = "/auth/oauth"
	defaultStateTTL = 10 * time.Minute
)

// OAuthState ties an OAuth round trip to the browser that started it. The
// state value is only sent back on /auth/oauth/* requests.
type OAuthState struct {
	secure bool
	ttl    time.Duration
}

func NewOAuthState(cfg *config.AuthConfig, ttl time.Duration) *OAuthState {
	if ttl <= 0 {
		ttl = defaultStateTTL
	}
	return &OAuthState{secure: cfg.SecureCookie, ttl: ttl}
}

func (s *OAuthState) Name() string { return stateName }

// Write remembers state for the lifetime of the round trip.
func (s *OAuthState) Write(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     stateName,
		Value:    state,
		Path:     statePath,
		MaxAge:   int(s.ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Matches reports whether the browser holds the given state. An empty
// state never matches.
func (s *OAuthState) Matches(c echo.Context, state string) bool {
	ck, err := c.Cookie(stateName)
	if err != nil || ck.Value == "" || state == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(ck.Value), []byte(state)) == 1
}

func (s *OAuthState) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     stateName,
		Value:    "",
		Path:     statePath,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
